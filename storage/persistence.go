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

import "fmt"
import "context"
import "strings"

/*

persistence interface

A function library is a single blob of source text (def forms). It can be
stored in several places, selected by the target string:

 - path/to/lib.nova, file://path   plain file
 - *.lz4, *.xz                     compressed file
 - s3://bucket/key                 S3 object
 - ceph://pool/object              RADOS object (build with -tags=ceph)
 - mysql://user:pw@tcp(host)/db    row in table nova_functions
 - postgres://user:pw@host/db      row in table nova_functions
 - bolt://path/to/file.db          key in a bbolt bucket

*/

type Backend interface {
	// Load returns the stored text; a missing library wraps fs.ErrNotExist.
	Load(ctx context.Context) ([]byte, error)
	Store(ctx context.Context, data []byte) error
	Close() error
	String() string
}

type BackendFactory func(target string, rest string) (Backend, error)

// BackendRegistry maps a target scheme to its factory.
var BackendRegistry = map[string]BackendFactory{}

// Open picks the backend for a target. Targets without a scheme are files.
func Open(target string) (Backend, error) {
	scheme, rest, ok := strings.Cut(target, "://")
	if !ok {
		return OpenFile(target), nil
	}
	factory, ok := BackendRegistry[scheme]
	if !ok {
		return nil, fmt.Errorf("unknown storage scheme %q in %q", scheme, target)
	}
	return factory(target, rest)
}

// bucketAndKey splits "bucket/some/key".
func bucketAndKey(rest string) (string, string, error) {
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("expected <container>/<name> but got %q", rest)
	}
	return bucket, key, nil
}

func init() {
	BackendRegistry["file"] = func(target, rest string) (Backend, error) {
		return OpenFile(rest), nil
	}
}
