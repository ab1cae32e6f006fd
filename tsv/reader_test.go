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


package tsv

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/poiesic/catalogsync/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r *Reader) ([]core.RawRow, []*core.ParseError, error) {
	t.Helper()
	var rows []core.RawRow
	var parseErrs []*core.ParseError
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rows, parseErrs, nil
		}
		var pe *core.ParseError
		if errors.As(err, &pe) {
			parseErrs = append(parseErrs, pe)
			continue
		}
		if err != nil {
			return rows, parseErrs, err
		}
		rows = append(rows, row)
	}
}

func TestReader_PreservesOrder(t *testing.T) {
	input := "sku\tdesc\tprice\nA\tfirst\t1\nB\tsecond\t2\nC\tthird\t3\n"
	r, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"sku", "desc", "price"}, r.Header())

	rows, parseErrs, err := readAll(t, r)
	require.NoError(t, err)
	assert.Empty(t, parseErrs)
	require.Len(t, rows, 3)

	for i, want := range []string{"A", "B", "C"} {
		assert.Equal(t, i, rows[i].Index)
		v, ok := rows[i].Get("sku")
		require.True(t, ok)
		assert.Equal(t, want, v)
	}
}

func TestReader_MalformedRowIsSkipped(t *testing.T) {
	input := "sku\tdesc\tprice\nA\tgood\t1\nB\tmissing-price\nC\tgood\t3\n"
	r, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	rows, parseErrs, err := readAll(t, r)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, parseErrs, 1)

	assert.Equal(t, 0, rows[0].Index)
	assert.Equal(t, 2, rows[1].Index, "malformed row still consumes an index")
	assert.Equal(t, 1, parseErrs[0].RowIndex)
	assert.Equal(t, 3, parseErrs[0].Line)
	assert.Equal(t, 3, parseErrs[0].Expected)
	assert.Equal(t, 2, parseErrs[0].Actual)
}

func TestReader_RowOffset(t *testing.T) {
	r, err := NewReader(strings.NewReader("a\tb\n1\t2\n3\t4\n"), WithRowOffset(100))
	require.NoError(t, err)

	rows, _, err := readAll(t, r)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 100, rows[0].Index)
	assert.Equal(t, 101, rows[1].Index)
}

func TestReader_CustomDelimiter(t *testing.T) {
	r, err := NewReader(strings.NewReader("a,b\n1,2\n"), WithDelimiter(','))
	require.NoError(t, err)

	rows, _, err := readAll(t, r)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"1", "2"}, rows[0].Values)
}

func TestReader_BOMAndCRLF(t *testing.T) {
	input := "\ufeffsku\tprice\r\nA\t1\r\n\r\nB\t2"
	r, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"sku", "price"}, r.Header())

	rows, _, err := readAll(t, r)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"B", "2"}, rows[1].Values)
	assert.Equal(t, 1, rows[1].Index, "blank lines do not consume indexes")
}

func TestReader_DelimiterOnlyLineIsARow(t *testing.T) {
	r, err := NewReader(strings.NewReader("a\tb\tc\nx\ty\tz\n\t\t\nq\tr\ts\n"))
	require.NoError(t, err)

	rows, parseErrs, err := readAll(t, r)
	require.NoError(t, err)
	assert.Empty(t, parseErrs)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"", "", ""}, rows[1].Values)
	assert.Equal(t, 1, rows[1].Index)
	assert.Equal(t, []string{"q", "r", "s"}, rows[2].Values)
	assert.Equal(t, 2, rows[2].Index)
}

func TestReader_WhitespaceLineIsReported(t *testing.T) {
	r, err := NewReader(strings.NewReader("a\tb\nx\ty\n   \nq\tr\n"))
	require.NoError(t, err)

	rows, parseErrs, err := readAll(t, r)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, parseErrs, 1, "a whitespace line is a malformed row, not a skipped one")
	assert.Equal(t, 1, parseErrs[0].RowIndex)
	assert.Equal(t, 3, parseErrs[0].Line)
}

func TestReader_EmptyInput(t *testing.T) {
	_, err := NewReader(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingHeader)
}

func TestReader_HeaderOnly(t *testing.T) {
	r, err := NewReader(strings.NewReader("a\tb\n"))
	require.NoError(t, err)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_StreamFailureIsTerminal(t *testing.T) {
	boom := errors.New("disk on fire")
	src := io.MultiReader(strings.NewReader("a\tb\n1\t2\n"), iotest.ErrReader(boom))
	r, err := NewReader(src)
	require.NoError(t, err)

	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, row.Values)

	_, err = r.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var ioErr *core.IOError
	assert.ErrorAs(t, err, &ioErr)

	_, again := r.Next()
	assert.Equal(t, err, again, "failure is latched")
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "part_1.tsv")
	require.NoError(t, os.WriteFile(path, []byte("a\tb\n1\t2\n"), 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	rows, _, err := readAll(t, r)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.NoError(t, r.Close())
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.tsv"))
	var ioErr *core.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
