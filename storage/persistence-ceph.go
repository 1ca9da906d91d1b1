//go:build ceph

/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

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

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/ceph/go-ceph/rados"
)

func init() {
	BackendRegistry["ceph"] = func(target, rest string) (Backend, error) {
		pool, object, err := bucketAndKey(rest)
		if err != nil {
			return nil, err
		}
		return NewCephStorage(Settings.Ceph, pool, object), nil
	}
}

// Ceph/RADOS layout: the library is the single object <pool>/<object>,
// overwritten atomically with WriteFull.

type CephStorage struct {
	cfg    CephConfig
	pool   string
	object string
	codec  Codec

	mu    sync.Mutex
	conn  *rados.Conn
	ioctx *rados.IOContext
}

func NewCephStorage(cfg CephConfig, pool, object string) *CephStorage {
	return &CephStorage{cfg: cfg, pool: pool, object: object, codec: CodecFor(object)}
}

func (s *CephStorage) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ioctx != nil {
		return nil
	}

	conn, err := rados.NewConnWithClusterAndUser(s.cfg.ClusterName, s.cfg.UserName)
	if err != nil {
		return fmt.Errorf("%s: %w", s, err)
	}
	if s.cfg.ConfFile != "" {
		if err := conn.ReadConfigFile(s.cfg.ConfFile); err != nil {
			conn.Shutdown()
			return fmt.Errorf("%s: %w", s, err)
		}
	} else {
		// without a conf file, CEPH_ARGS/CEPH_CONF or the defaults apply
		_ = conn.ReadDefaultConfigFile()
	}
	if err := conn.Connect(); err != nil {
		conn.Shutdown()
		return fmt.Errorf("%s: connect: %w", s, err)
	}
	ioctx, err := conn.OpenIOContext(s.pool)
	if err != nil {
		conn.Shutdown()
		return fmt.Errorf("%s: %w", s, err)
	}
	s.conn = conn
	s.ioctx = ioctx
	return nil
}

func (s *CephStorage) Load(ctx context.Context) ([]byte, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	stat, err := s.ioctx.Stat(s.object)
	if errors.Is(err, rados.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", s, fs.ErrNotExist)
	} else if err != nil {
		return nil, fmt.Errorf("%s: %w", s, err)
	}
	data := make([]byte, stat.Size)
	n, err := s.ioctx.Read(s.object, data, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s, err)
	}
	return decode(s.codec, data[:n])
}

func (s *CephStorage) Store(ctx context.Context, data []byte) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	raw, err := encode(s.codec, data)
	if err != nil {
		return err
	}
	if err := s.ioctx.WriteFull(s.object, raw); err != nil {
		return fmt.Errorf("%s: %w", s, err)
	}
	return nil
}

func (s *CephStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ioctx != nil {
		s.ioctx.Destroy()
		s.ioctx = nil
	}
	if s.conn != nil {
		s.conn.Shutdown()
		s.conn = nil
	}
	return nil
}

func (s *CephStorage) String() string {
	return "ceph://" + s.pool + "/" + s.object
}
