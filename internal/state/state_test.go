package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPartitionCoversWholeRangeNoGapsNoOverlaps(t *testing.T) {
	segs := Partition(1048576, 4)
	if len(segs) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segs))
	}
	var total int64
	for i, s := range segs {
		if s.Index != i {
			t.Errorf("segment %d has wrong index %d", i, s.Index)
		}
		total += s.Size()
		if i > 0 && s.StartByte != segs[i-1].EndByte+1 {
			t.Errorf("gap/overlap between segment %d and %d", i-1, i)
		}
	}
	if total != 1048576 {
		t.Errorf("segments do not cover whole range: got %d want 1048576", total)
	}
	if segs[len(segs)-1].EndByte != 1048576-1 {
		t.Errorf("last segment end = %d, want %d", segs[len(segs)-1].EndByte, 1048576-1)
	}
}

func TestPartitionZeroByteFile(t *testing.T) {
	segs := Partition(0, 4)
	if len(segs) != 1 {
		t.Fatalf("expected a single segment for a zero-byte file, got %d", len(segs))
	}
	if !segs[0].Finished {
		t.Errorf("zero-byte segment should be immediately finished")
	}
}

func TestPartitionSmallFileCollapsesWorkerCount(t *testing.T) {
	segs := Partition(3, 8)
	if len(segs) != 1 {
		t.Errorf("expected worker count to collapse for a tiny file, got %d segments", len(segs))
	}
}

func TestValidateRepairsTruncatedCounter(t *testing.T) {
	d := &DownloadState{
		Segments: []Segment{
			{Index: 0, StartByte: 0, EndByte: 99, Downloaded: 50, Finished: true},
		},
	}
	Validate(d)
	if d.Segments[0].Finished {
		t.Errorf("expected finished to be cleared for an under-reported segment")
	}
}

func TestValidateClampsOverCountedCounter(t *testing.T) {
	d := &DownloadState{
		Segments: []Segment{
			{Index: 0, StartByte: 0, EndByte: 99, Downloaded: 150, Finished: false},
		},
	}
	Validate(d)
	seg := d.Segments[0]
	if seg.Downloaded != 100 || !seg.Finished {
		t.Errorf("expected clamp to 100 and finished=true, got downloaded=%d finished=%v", seg.Downloaded, seg.Finished)
	}
}

func TestHeadersMatch(t *testing.T) {
	d := &DownloadState{ETag: `"abc"`}
	if !d.HeadersMatch(`"abc"`, "") {
		t.Errorf("matching etag should validate")
	}
	if d.HeadersMatch(`"xyz"`, "") {
		t.Errorf("mismatched etag should invalidate")
	}
	if !d.HeadersMatch("", "") {
		t.Errorf("absent remote etag should not invalidate (no claim)")
	}
}

func TestStoreSnapshotLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	d := &DownloadState{
		URL:              "https://example.com/x.bin",
		ResolvedFilename: "x.bin",
		TotalSize:        1048576,
		Segments:         Partition(1048576, 4),
	}
	fp := "deadbeefcafebabe0011223344556677"

	if err := store.Snapshot("", fp, d); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, fp+".progress.tmp")); !os.IsNotExist(err) {
		t.Errorf("expected tmp file to be renamed away, stat err = %v", err)
	}

	loaded, err := store.Load("", fp)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected loaded state, got nil")
	}
	if loaded.URL != d.URL || loaded.TotalSize != d.TotalSize || len(loaded.Segments) != len(d.Segments) {
		t.Errorf("round trip mismatch: %+v vs %+v", loaded, d)
	}

	if err := store.Remove("", fp); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	loaded, err = store.Load("", fp)
	if err != nil || loaded != nil {
		t.Errorf("expected nil, nil after remove, got %+v, %v", loaded, err)
	}
}

func TestStoreLoadMissingIsNotAnError(t *testing.T) {
	store := NewStore(t.TempDir())
	loaded, err := store.Load("", "0000000000000000")
	if err != nil {
		t.Fatalf("unexpected error for missing state: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil state for missing fingerprint")
	}
}

func TestCompletedBitfieldRoundTrip(t *testing.T) {
	segs := Partition(1048576*10, 17)
	for i := range segs {
		if i%3 == 0 {
			segs[i].Finished = true
		}
	}
	bf := CompletedBitfield(segs)
	want := 0
	for _, s := range segs {
		if s.Finished {
			want++
		}
	}
	if got := CountCompleted(bf); got != want {
		t.Errorf("CountCompleted = %d, want %d", got, want)
	}
}
