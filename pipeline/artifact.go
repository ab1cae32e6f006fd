// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/poiesic/catalogsync/core"
)

// writeArtifact replaces path with the products as an indented JSON array.
// The file is written next to path and renamed so readers never observe a
// partial artifact.
func writeArtifact(path string, products []core.CanonicalProduct) error {
	if products == nil {
		products = []core.CanonicalProduct{}
	}
	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return &core.IOError{Op: "encode", Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &core.IOError{Op: "mkdir", Path: dir, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return &core.IOError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &core.IOError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &core.IOError{Op: "close", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &core.IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}
