package vgf

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/samcharles93/vamp/internal/grid"
)

func TestOpenReaderAtRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "clip.vgf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}

	w, err := NewWriter(f)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.WriteSection(SectionMeta, 1, []byte(`{"layers":1}`)); err != nil {
		t.Fatalf("write meta: %v", err)
	}
	if err := w.WriteSection(SectionTokens, 1, []byte{1, 2, 3, 4, 5, 6}); err != nil {
		t.Fatalf("write tokens: %v", err)
	}
	if err := w.Finalise(); err != nil {
		t.Fatalf("finalise: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close writer file: %v", err)
	}

	rf, err := os.Open(path)
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	defer func() { _ = rf.Close() }()

	st, err := rf.Stat()
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	vf, err := OpenReaderAt(rf, st.Size())
	if err != nil {
		t.Fatalf("open readerat: %v", err)
	}
	defer func() {
		if cerr := vf.Close(); cerr != nil {
			t.Fatalf("close vgf file: %v", cerr)
		}
	}()

	if vf.mmapped {
		t.Fatalf("OpenReaderAt should not mmap")
	}
	if vf.Header == nil {
		t.Fatalf("missing header")
	}
	if vf.Header.HeaderSize != vgfHeaderSize {
		t.Fatalf("header size mismatch: got %d want %d", vf.Header.HeaderSize, vgfHeaderSize)
	}

	metaSec := vf.Section(SectionMeta)
	if metaSec == nil {
		t.Fatalf("missing meta section")
	}
	got := vf.SectionData(metaSec)
	if !bytes.Equal(got, []byte(`{"layers":1}`)) {
		t.Fatalf("meta mismatch: got %q", string(got))
	}
}

func TestHeaderAndSectionEncodingLittleEndian(t *testing.T) {
	t.Parallel()

	h := Header{
		Magic:            [4]byte{'V', 'G', 'F', 0},
		Major:            0x1122,
		Minor:            0x3344,
		HeaderSize:       vgfHeaderSize,
		SectionCount:     7,
		SectionDirOffset: 0x0102030405060708,
		FileSize:         0x1112131415161718,
		Flags:            0x2122232425262728,
	}
	var hdrRaw [vgfHeaderSize]byte
	if !encodeHeader(hdrRaw[:], h) {
		t.Fatalf("encode header failed")
	}
	if hdrRaw[4] != 0x22 || hdrRaw[5] != 0x11 {
		t.Fatalf("major is not little-endian: %x", hdrRaw[4:6])
	}
	if hdrRaw[16] != 0x08 || hdrRaw[23] != 0x01 {
		t.Fatalf("section dir offset is not little-endian: %x", hdrRaw[16:24])
	}
	decodedH, ok := decodeHeader(hdrRaw[:])
	if !ok {
		t.Fatalf("decode header failed")
	}
	if decodedH != h {
		t.Fatalf("header round-trip mismatch: got %+v want %+v", decodedH, h)
	}

	s := Section{
		Type:    0x11223344,
		Version: 0x55667788,
		Offset:  0x0102030405060708,
		Size:    0x1112131415161718,
	}
	var secRaw [vgfSectionSize]byte
	if !encodeSection(secRaw[:], s) {
		t.Fatalf("encode section failed")
	}
	if secRaw[0] != 0x44 || secRaw[3] != 0x11 {
		t.Fatalf("section type is not little-endian: %x", secRaw[0:4])
	}
	if secRaw[8] != 0x08 || secRaw[15] != 0x01 {
		t.Fatalf("section offset is not little-endian: %x", secRaw[8:16])
	}
	decodedS, ok := decodeSection(secRaw[:])
	if !ok {
		t.Fatalf("decode section failed")
	}
	if decodedS != s {
		t.Fatalf("section round-trip mismatch: got %+v want %+v", decodedS, s)
	}
}

func TestOpenRejectsCorruptFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	short := filepath.Join(dir, "short.vgf")
	if err := os.WriteFile(short, []byte("VGF"), 0o644); err != nil {
		t.Fatalf("write short file: %v", err)
	}
	if _, err := Open(short); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("short file: got %v, want ErrCorruptFile", err)
	}

	badMagic := filepath.Join(dir, "magic.vgf")
	raw := make([]byte, vgfHeaderSize)
	copy(raw, "NOPE")
	if err := os.WriteFile(badMagic, raw, 0o644); err != nil {
		t.Fatalf("write bad magic: %v", err)
	}
	if _, err := Open(badMagic); !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("bad magic: got %v, want ErrInvalidMagic", err)
	}

	badMajor := filepath.Join(dir, "major.vgf")
	h := Header{
		Magic:            [4]byte{'V', 'G', 'F', 0},
		Major:            CurrentMajor + 1,
		HeaderSize:       vgfHeaderSize,
		SectionCount:     1,
		SectionDirOffset: vgfHeaderSize,
		FileSize:         vgfHeaderSize + vgfSectionSize,
	}
	raw = make([]byte, vgfHeaderSize+vgfSectionSize)
	encodeHeader(raw, h)
	if err := os.WriteFile(badMajor, raw, 0o644); err != nil {
		t.Fatalf("write bad major: %v", err)
	}
	if _, err := Open(badMajor); !errors.Is(err, ErrUnsupportedMajor) {
		t.Fatalf("bad major: got %v, want ErrUnsupportedMajor", err)
	}
}

func TestGridFileRoundTrip(t *testing.T) {
	t.Parallel()

	g, err := grid.New(3, 5, 64)
	if err != nil {
		t.Fatalf("new grid: %v", err)
	}
	for l := 0; l < 3; l++ {
		for s := 0; s < 5; s++ {
			g.Tokens[l][s] = (l*5 + s) % 64
			g.Mask[l][s] = false
		}
	}
	if err := g.Pin(1, 2, 9); err != nil {
		t.Fatalf("pin: %v", err)
	}
	g.Mask[2][4] = true
	g.Tokens[2][4] = g.MaskToken()

	path := filepath.Join(t.TempDir(), "grid.vgf")
	meta := Meta{ID: "gen_test", SampleRate: 44100, HopLength: 512}
	if err := WriteGridFile(path, g, meta); err != nil {
		t.Fatalf("write grid file: %v", err)
	}

	got, gotMeta, err := ReadGridFile(path)
	if err != nil {
		t.Fatalf("read grid file: %v", err)
	}
	if gotMeta.ID != "gen_test" || gotMeta.Layers != 3 || gotMeta.Steps != 5 || gotMeta.Vocab != 64 {
		t.Fatalf("meta mismatch: %+v", gotMeta)
	}
	if gotMeta.SampleRate != 44100 || gotMeta.HopLength != 512 {
		t.Fatalf("audio meta mismatch: %+v", gotMeta)
	}
	for l := 0; l < 3; l++ {
		for s := 0; s < 5; s++ {
			if got.Tokens[l][s] != g.Tokens[l][s] {
				t.Fatalf("token (%d,%d): got %d, want %d", l, s, got.Tokens[l][s], g.Tokens[l][s])
			}
			if got.Mask[l][s] != g.Mask[l][s] || got.Fixed[l][s] != g.Fixed[l][s] {
				t.Fatalf("flags (%d,%d) differ after round trip", l, s)
			}
		}
	}
}

func TestReadGridFileMissingSection(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tokensless.vgf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w, err := NewWriter(f)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.WriteSection(SectionMeta, 1, []byte(`{"layers":2,"steps":2,"vocab":8}`)); err != nil {
		t.Fatalf("write meta: %v", err)
	}
	if err := w.Finalise(); err != nil {
		t.Fatalf("finalise: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, _, err := ReadGridFile(path); !errors.Is(err, ErrMissingSection) {
		t.Fatalf("got %v, want ErrMissingSection", err)
	}
}
