/*
Copyright (C) 2023  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package scm

import "io"
import "log"
import "time"
import "bytes"
import "net/http"
import "crypto/subtle"
import "github.com/gorilla/websocket"

/*
ReplServer offers the prompt over websockets at /repl. Every connection
gets its own session; each text message is one input and the reply holds
everything the input printed plus its results.

POST /eval evaluates the request body in a throwaway session.

Network sessions are restricted: only commands marked Remote run, so
clients can't reach files or process wide switches on the server.
*/
type ReplServer struct {
	// Setup prepares a new session, e.g. imports the function library
	Setup func(s *Session) error
	// User and Password enable basic auth when Password is set
	User     string
	Password string
	upgrader websocket.Upgrader
}

func NewReplServer(setup func(s *Session) error) *ReplServer {
	return &ReplServer{
		Setup: setup,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (rs *ReplServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/repl", rs.authenticated(rs.serveWebsocket))
	mux.HandleFunc("/eval", rs.authenticated(rs.serveEval))
	return mux
}

// authenticated checks basic auth or the user info of the URL.
func (rs *ReplServer) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(res http.ResponseWriter, req *http.Request) {
		if rs.Password != "" {
			user, pass, ok := req.BasicAuth()
			if !ok && req.URL.User != nil {
				// if no basicauth is provided, read from URL
				user = req.URL.User.Username()
				pass, ok = req.URL.User.Password()
			}
			if !ok || subtle.ConstantTimeCompare([]byte(user), []byte(rs.User)) != 1 || subtle.ConstantTimeCompare([]byte(pass), []byte(rs.Password)) != 1 {
				res.Header().Set("WWW-Authenticate", `Basic realm="nova"`)
				http.Error(res, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(res, req)
	}
}

// ListenAndServe blocks like http.Server.ListenAndServe.
func (rs *ReplServer) ListenAndServe(addr string) error {
	server := &http.Server{
		Addr:           addr,
		Handler:        rs.Handler(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return server.ListenAndServe()
}

func (rs *ReplServer) newSession(out io.Writer) (*Session, error) {
	s := NewSession(out)
	if rs.Setup != nil {
		if err := rs.Setup(s); err != nil {
			return nil, err
		}
	}
	s.Restricted = true
	return s, nil
}

// input runs one message and returns what it printed.
func input(s *Session, out *bytes.Buffer, r *http.Request, msg string) (quit bool) {
	out.Reset()
	err := s.Line(r.Context(), "websocket", msg)
	if err == ErrQuit {
		return true
	}
	if err != nil {
		out.WriteString(Render(err) + "\n")
	}
	return false
}

func (rs *ReplServer) serveWebsocket(res http.ResponseWriter, req *http.Request) {
	ws, err := rs.upgrader.Upgrade(res, req, nil)
	if err != nil {
		log.Println("websocket upgrade:", err)
		return
	}
	defer ws.Close()
	var out bytes.Buffer
	s, err := rs.newSession(&out)
	if err != nil {
		ws.WriteMessage(websocket.TextMessage, []byte(Render(err)))
		return
	}
	log.Println("repl session", s.ID, "opened from", req.RemoteAddr)
	defer log.Println("repl session", s.ID, "closed")
	for {
		messageType, msg, err := ws.ReadMessage()
		if err != nil {
			if _, ok := err.(*websocket.CloseError); !ok {
				log.Println("websocket receive:", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if input(s, &out, req, string(msg)) {
			ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			return
		}
		if err := ws.WriteMessage(websocket.TextMessage, out.Bytes()); err != nil {
			log.Println("websocket send:", err)
			return
		}
	}
}

func (rs *ReplServer) serveEval(res http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(res, "POST the source text", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
	if err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}
	var out bytes.Buffer
	s, err := rs.newSession(&out)
	if err != nil {
		http.Error(res, Render(err), http.StatusInternalServerError)
		return
	}
	input(s, &out, req, string(body))
	res.Header().Set("Content-Type", "text/plain")
	res.Write(out.Bytes())
}
