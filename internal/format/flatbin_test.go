package format

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeInt64File writes a little-endian int64 array file for a test dataset.
func writeInt64File(t *testing.T, path string, values []int64) {
	t.Helper()

	contents := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(contents[i*8:], uint64(v))
	}

	require.NoError(t, os.WriteFile(path, contents, 0o600))
}

// writeInt32File writes a little-endian int32 array file for a test dataset.
func writeInt32File(t *testing.T, path string, values []int32) {
	t.Helper()

	contents := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(contents[i*4:], uint32(v))
	}

	require.NoError(t, os.WriteFile(path, contents, 0o600))
}

// writeInt16File writes a little-endian int16 array file for a test dataset.
func writeInt16File(t *testing.T, path string, values []int16) {
	t.Helper()

	contents := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(contents[i*2:], uint16(v))
	}

	require.NoError(t, os.WriteFile(path, contents, 0o600))
}

// writeTestDataset lays out a complete flat-binary recording in dir: one
// two-channel stream, one event source and one spike source.
func writeTestDataset(t *testing.T, dir string) {
	t.Helper()

	manifest := `format: flatbin
streams:
  - name: ProbeA
    sample_rate: 30000
    num_channels: 2
    samples_file: probe_a.samples.i16
    sample_numbers_file: probe_a.samples.i64
events:
  - source: ProbeA
    file: probe_a.events.json
spikes:
  - name: ProbeA-units
    stream_name: ProbeA
    sample_numbers_file: probe_a.spikes.i64
    cluster_ids_file: probe_a.clusters.i32
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifest), 0o600))

	writeInt64File(t, filepath.Join(dir, "probe_a.samples.i64"), []int64{100, 101, 102})
	writeInt16File(t, filepath.Join(dir, "probe_a.samples.i16"), []int16{1, -1, 2, -2, 3, -3})
	writeInt64File(t, filepath.Join(dir, "probe_a.spikes.i64"), []int64{100, 102})
	writeInt32File(t, filepath.Join(dir, "probe_a.clusters.i32"), []int32{7, 9})

	rows := []ttlEventRecord{
		{Line: 4, State: true, SampleNumber: 100, Timestamp: 100.0 / 30000, ProcessorID: "100", StreamName: "ProbeA"},
		{Line: 4, State: false, SampleNumber: 101, Timestamp: 101.0 / 30000, ProcessorID: "100", StreamName: "ProbeA"},
	}

	contents, err := json.Marshal(rows)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "probe_a.events.json"), contents, 0o600))
}

// TestLoadFlatBinary verifies a full dataset loads into a populated aggregate.
func TestLoadFlatBinary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestDataset(t, dir)

	rec, err := Load(context.Background(), dir, "")
	require.NoError(t, err)
	require.Equal(t, FlatBinaryFormatName, rec.Format)
	require.False(t, rec.SampleNumbersAreTimestamps)

	stream, ok := rec.Stream("ProbeA")
	require.True(t, ok)
	require.InDelta(t, 30000.0, stream.SampleRate, 0)
	require.Equal(t, 2, stream.NumChannels)
	require.Equal(t, []int64{100, 101, 102}, stream.SampleNumbers)
	require.Equal(t, []int16{1, -1, 2, -2, 3, -3}, stream.Samples)

	events := rec.EventsFor("ProbeA")
	require.Len(t, events, 2)
	require.True(t, events[0].State)
	require.Equal(t, int64(100), events[0].SampleNumber)
	require.Equal(t, "100", events[0].ProcessorID)

	spikes, ok := rec.Spikes.Get("ProbeA-units")
	require.True(t, ok)
	require.Equal(t, []int64{100, 102}, spikes.SampleNumbers)
	require.Equal(t, []int32{7, 9}, spikes.ClusterIDs)
}

// TestLoadExplicitFormat verifies loading by format name instead of detection.
func TestLoadExplicitFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestDataset(t, dir)

	rec, err := Load(context.Background(), dir, FlatBinaryFormatName)
	require.NoError(t, err)
	require.Equal(t, 1, rec.Streams.Len())
}

// TestLoadUnknownFormat verifies an unregistered format name errors out.
func TestLoadUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := Load(context.Background(), t.TempDir(), "no-such-format")
	require.Error(t, err)
}

// TestLoadUndetected verifies a directory without a manifest is rejected by
// auto-detection.
func TestLoadUndetected(t *testing.T) {
	t.Parallel()

	_, err := Load(context.Background(), t.TempDir(), "")
	require.Error(t, err)
}

// TestLoadFrameMismatch verifies a sample file that does not fill its frames
// aborts the load.
func TestLoadFrameMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestDataset(t, dir)
	writeInt16File(t, filepath.Join(dir, "probe_a.samples.i16"), []int16{1, -1, 2})

	_, err := Load(context.Background(), dir, "")
	require.Error(t, err)
}

// TestDetectRecordings verifies detection covers the directory itself and its
// immediate subdirectories.
func TestDetectRecordings(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	nested := filepath.Join(root, "session-1")
	require.NoError(t, os.Mkdir(nested, 0o750))

	writeTestDataset(t, nested)

	loader := NewFlatBinary()
	require.False(t, loader.DetectFormat(root))
	require.True(t, loader.DetectFormat(nested))

	recordings, err := loader.DetectRecordings(root)
	require.NoError(t, err)
	require.Equal(t, []string{nested}, recordings)
}

// TestWriteFloat64File verifies the exported timestamp files round-trip
// through their little-endian encoding.
func TestWriteFloat64File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.f64")
	values := []float64{0, 0.5, -1.25, math.Pi}

	require.NoError(t, WriteFloat64File(path, values))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, contents, len(values)*8)

	for i, want := range values {
		got := math.Float64frombits(binary.LittleEndian.Uint64(contents[i*8:]))
		require.InDelta(t, want, got, 0)
	}
}
