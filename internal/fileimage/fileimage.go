// Package fileimage implements the FileImage intermediate representation
// from spec §3: the toolkit's universal serialization of a single file
// plus its filesystem metadata, flowing between a packer and `put` via
// stdin/stdout JSON (spec §6).
package fileimage

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FimgVersion is the schema version this package writes (spec §6).
const FimgVersion = "2.1.0"

// FileSystem names the filesystem family a FileImage was produced for.
type FileSystem string

const (
	FSDos      FileSystem = "a2 dos"
	FSPascal   FileSystem = "a2 pascal"
	FSProDOS   FileSystem = "prodos"
	FSCPM      FileSystem = "cpm"
	FSFAT      FileSystem = "fat"
)

// FileImage is the canonical IR described in spec §3.
type FileImage struct {
	FimgVersion string
	FileSystem  FileSystem
	ChunkLen    int
	Eof         []byte
	FsType      []byte
	Aux         []byte
	Access      []byte
	Accessed    []byte
	Created     []byte
	Modified    []byte
	Version     []byte
	MinVersion  []byte
	FullPath    string
	Chunks      map[int][]byte
}

// New returns an empty FileImage ready for a packer to fill in.
func New(fs FileSystem, chunkLen int, tsLen int) *FileImage {
	return &FileImage{
		FimgVersion: FimgVersion,
		FileSystem:  fs,
		ChunkLen:    chunkLen,
		Eof:         make([]byte, 4),
		FsType:      make([]byte, 1),
		Aux:         make([]byte, 2),
		Access:      make([]byte, 1),
		Accessed:    make([]byte, tsLen),
		Created:     make([]byte, tsLen),
		Modified:    make([]byte, tsLen),
		Version:     make([]byte, 1),
		MinVersion:  make([]byte, 1),
		Chunks:      map[int][]byte{},
	}
}

// OrderedIndices returns the chunk indices in ascending order.
func (f *FileImage) OrderedIndices() []int {
	idx := make([]int, 0, len(f.Chunks))
	for i := range f.Chunks {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// End returns the logical chunk count assuming indexing from 0.
func (f *FileImage) End() int {
	idx := f.OrderedIndices()
	if len(idx) == 0 {
		return 0
	}
	return idx[len(idx)-1] + 1
}

// IsSparse reports whether the chunk index set has gaps or fails to start
// at zero.
func (f *FileImage) IsSparse() bool {
	test := 0
	for _, i := range f.OrderedIndices() {
		if i != test {
			return true
		}
		test++
	}
	return false
}

// GetEof decodes the little-endian, possibly-truncated Eof field.
func (f *FileImage) GetEof() int { return usizeFromTruncatedLE(f.Eof) }

// SetEof encodes v into Eof, preserving Eof's current byte width.
func (f *FileImage) SetEof(v int) { f.Eof = fixLE(v, len(f.Eof)) }

// GetFType decodes the little-endian FsType field.
func (f *FileImage) GetFType() int { return usizeFromTruncatedLE(f.FsType) }

// GetAux decodes the little-endian Aux field.
func (f *FileImage) GetAux() int { return usizeFromTruncatedLE(f.Aux) }

// Sequence packs the chunk data in index order; all sparse structure is
// lost.
func (f *FileImage) Sequence() []byte {
	var out []byte
	for _, i := range f.OrderedIndices() {
		out = append(out, f.Chunks[i]...)
	}
	return out
}

// SequenceLimited is Sequence truncated to maxLen bytes.
func (f *FileImage) SequenceLimited(maxLen int) []byte {
	out := f.Sequence()
	if maxLen < len(out) {
		out = out[:maxLen]
	}
	return out
}

// Desequence replaces Chunks with a fresh chunking of dat and updates Eof.
// The last chunk is left unpadded.
func (f *FileImage) Desequence(dat []byte) {
	f.Chunks = map[int][]byte{}
	if len(dat) == 0 {
		f.Eof = make([]byte, len(f.Eof))
		return
	}
	mark, idx := 0, 0
	for {
		end := mark + f.ChunkLen
		if end > len(dat) {
			end = len(dat)
		}
		chunk := make([]byte, end-mark)
		copy(chunk, dat[mark:end])
		f.Chunks[idx] = chunk
		mark = end
		if mark == len(dat) {
			f.SetEof(len(dat))
			return
		}
		idx++
	}
}

func fixLE(val, exactLen int) []byte {
	ans := make([]byte, 8)
	v := uint64(val)
	for i := 0; i < 8; i++ {
		ans[i] = byte(v >> (8 * i))
	}
	count := 0
	for i := len(ans) - 1; i >= 0; i-- {
		if ans[i] != 0 {
			break
		}
		count++
	}
	ans = ans[:len(ans)-count]
	for len(ans) < exactLen {
		ans = append(ans, 0)
	}
	return ans[:exactLen]
}

func usizeFromTruncatedLE(b []byte) int {
	ans := 0
	for i := 0; i < len(b) && i < 8; i++ {
		ans += int(b[i]) << (8 * i)
	}
	return ans
}

// wireImage is the JSON-on-the-wire shape from spec §6.
type wireImage struct {
	FimgVersion string            `json:"fimg_version"`
	FileSystem  string            `json:"file_system"`
	ChunkLen    int               `json:"chunk_len"`
	Eof         string            `json:"eof"`
	FsType      string            `json:"fs_type"`
	Aux         string            `json:"aux"`
	Access      string            `json:"access"`
	Accessed    string            `json:"accessed"`
	Created     string            `json:"created"`
	Modified    string            `json:"modified"`
	Version     string            `json:"version"`
	MinVersion  string            `json:"min_version"`
	FullPath    string            `json:"full_path"`
	Chunks      map[string]string `json:"chunks"`
}

// ToJSON renders the FileImage to the v2.1.0 wire schema. indent<=0 emits
// compact JSON.
func (f *FileImage) ToJSON(indent int) (string, error) {
	chunks := map[string]string{}
	for _, i := range f.OrderedIndices() {
		chunks[strconv.Itoa(i)] = strings.ToUpper(hex.EncodeToString(f.Chunks[i]))
	}
	w := wireImage{
		FimgVersion: f.FimgVersion,
		FileSystem:  string(f.FileSystem),
		ChunkLen:    f.ChunkLen,
		Eof:         strings.ToUpper(hex.EncodeToString(f.Eof)),
		FsType:      strings.ToUpper(hex.EncodeToString(f.FsType)),
		Aux:         strings.ToUpper(hex.EncodeToString(f.Aux)),
		Access:      strings.ToUpper(hex.EncodeToString(f.Access)),
		Accessed:    strings.ToUpper(hex.EncodeToString(f.Accessed)),
		Created:     strings.ToUpper(hex.EncodeToString(f.Created)),
		Modified:    strings.ToUpper(hex.EncodeToString(f.Modified)),
		Version:     strings.ToUpper(hex.EncodeToString(f.Version)),
		MinVersion:  strings.ToUpper(hex.EncodeToString(f.MinVersion)),
		FullPath:    f.FullPath,
		Chunks:      chunks,
	}
	var (
		b   []byte
		err error
	)
	if indent > 0 {
		b, err = json.MarshalIndent(w, "", strings.Repeat(" ", indent))
	} else {
		b, err = json.Marshal(w)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// versionTuple parses "X.Y.Z" into comparable ints; malformed strings parse
// as zero, which sorts below any real version and is rejected by FromJSON.
func versionTuple(v string) [3]int {
	parts := strings.SplitN(v, ".", 3)
	var t [3]int
	for i := 0; i < len(parts) && i < 3; i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return [3]int{}
		}
		t[i] = n
	}
	return t
}

func lessTuple(a, b [3]int) bool {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// FromJSON parses the wire schema. Versions below 2.0.0 are rejected; a
// v2.0.x payload is accepted with `accessed`/`full_path` defaulted empty
// (spec §6, SPEC_FULL.md §C).
func FromJSON(data []byte) (*FileImage, error) {
	var w wireImage
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("malformed file image JSON: %w", err)
	}
	vt := versionTuple(w.FimgVersion)
	if lessTuple(vt, [3]int{2, 0, 0}) {
		return nil, fmt.Errorf("file image v2 or higher is required, got %q", w.FimgVersion)
	}
	decode := func(s string) ([]byte, error) {
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("bad hex field %q: %w", s, err)
		}
		return b, nil
	}
	eof, err := decode(w.Eof)
	if err != nil {
		return nil, err
	}
	fsType, err := decode(w.FsType)
	if err != nil {
		return nil, err
	}
	aux, err := decode(w.Aux)
	if err != nil {
		return nil, err
	}
	access, err := decode(w.Access)
	if err != nil {
		return nil, err
	}
	created, err := decode(w.Created)
	if err != nil {
		return nil, err
	}
	modified, err := decode(w.Modified)
	if err != nil {
		return nil, err
	}
	version, err := decode(w.Version)
	if err != nil {
		return nil, err
	}
	minVersion, err := decode(w.MinVersion)
	if err != nil {
		return nil, err
	}
	var accessed []byte
	var fullPath string
	if !lessTuple(vt, [3]int{2, 1, 0}) {
		if accessed, err = decode(w.Accessed); err != nil {
			return nil, err
		}
		fullPath = w.FullPath
	}
	chunks := map[int][]byte{}
	for k, v := range w.Chunks {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("chunk index %q is not a number", k)
		}
		b, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("could not read hex string from chunk %q: %w", k, err)
		}
		chunks[n] = b
	}
	return &FileImage{
		FimgVersion: w.FimgVersion,
		FileSystem:  FileSystem(w.FileSystem),
		ChunkLen:    w.ChunkLen,
		Eof:         eof,
		FsType:      fsType,
		Aux:         aux,
		Access:      access,
		Accessed:    accessed,
		Created:     created,
		Modified:    modified,
		Version:     version,
		MinVersion:  minVersion,
		FullPath:    fullPath,
		Chunks:      chunks,
	}, nil
}
