package format

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/probelab/streamsync/internal/domain/recording"
)

// FlatBinaryFormatName is the registry name of the flat-binary format.
const FlatBinaryFormatName = "flatbin"

// manifestFilename is the manifest every flat-binary recording carries.
const manifestFilename = "manifest.yaml"

// manifest describes a flat-binary recording: a YAML index naming each
// stream's raw sample files, each event source's JSON table and each spike
// source's sample files. All binary files are little-endian.
type manifest struct {
	Format  string `yaml:"format"`
	Streams []struct {
		Name              string  `yaml:"name"`
		SampleRate        float64 `yaml:"sample_rate"`
		NumChannels       int     `yaml:"num_channels"`
		SamplesFile       string  `yaml:"samples_file"`
		SampleNumbersFile string  `yaml:"sample_numbers_file"`
	} `yaml:"streams"`
	Events []struct {
		Source string `yaml:"source"`
		File   string `yaml:"file"`
	} `yaml:"events"`
	Spikes []struct {
		Name              string `yaml:"name"`
		StreamName        string `yaml:"stream_name"`
		SampleNumbersFile string `yaml:"sample_numbers_file"`
		ClusterIDsFile    string `yaml:"cluster_ids_file"`
	} `yaml:"spikes"`
}

// ttlEventRecord is one row of an event source JSON table.
type ttlEventRecord struct {
	Line         int     `json:"line"`
	State        bool    `json:"state"`
	SampleNumber int64   `json:"sample_number"`
	Timestamp    float64 `json:"timestamp"`
	ProcessorID  string  `json:"processor_id"`
	StreamName   string  `json:"stream_name"`
}

// FlatBinary loads recordings stored as a YAML manifest plus raw
// little-endian sample files. It is the reference loader implementation.
type FlatBinary struct{}

// NewFlatBinary creates the flat-binary loader.
func NewFlatBinary() *FlatBinary {
	return &FlatBinary{}
}

// Format returns the registry name of the format.
func (f *FlatBinary) Format() string {
	return FlatBinaryFormatName
}

// SampleNumbersAreTimestamps reports false: flat-binary sample numbers are
// counters, so the aligner divides by the sample rate.
func (f *FlatBinary) SampleNumbersAreTimestamps() bool {
	return false
}

// DetectFormat reports whether the directory carries a flat-binary manifest.
func (f *FlatBinary) DetectFormat(directory string) bool {
	m, err := f.readManifest(directory)

	return err == nil && m.Format == FlatBinaryFormatName
}

// DetectRecordings lists the directory itself and its immediate
// subdirectories that carry a flat-binary manifest.
func (f *FlatBinary) DetectRecordings(directory string) ([]string, error) {
	var recordings []string

	if f.DetectFormat(directory) {
		recordings = append(recordings, directory)
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		candidate := filepath.Join(directory, entry.Name())
		if f.DetectFormat(candidate) {
			recordings = append(recordings, candidate)
		}
	}

	return recordings, nil
}

// LoadContinuous reads every stream's sample numbers and raw samples.
func (f *FlatBinary) LoadContinuous(_ context.Context, directory string, rec *recording.Recording) error {
	m, err := f.readManifest(directory)
	if err != nil {
		return err
	}

	for _, entry := range m.Streams {
		sampleNumbers, err := readInt64File(filepath.Join(directory, entry.SampleNumbersFile))
		if err != nil {
			return fmt.Errorf("stream %q sample numbers: %w", entry.Name, err)
		}

		samples, err := readInt16File(filepath.Join(directory, entry.SamplesFile))
		if err != nil {
			return fmt.Errorf("stream %q samples: %w", entry.Name, err)
		}

		numChannels := entry.NumChannels
		if numChannels == 0 {
			numChannels = 1
		}

		if len(samples) != len(sampleNumbers)*numChannels {
			return fmt.Errorf("stream %q: %d samples do not fill %d frames of %d channels",
				entry.Name, len(samples), len(sampleNumbers), numChannels)
		}

		rec.AddStream(&recording.ContinuousStream{
			StreamName:    entry.Name,
			SampleRate:    entry.SampleRate,
			NumChannels:   numChannels,
			SampleNumbers: sampleNumbers,
			Samples:       samples,
		})
	}

	return nil
}

// LoadEvents reads every event source's JSON table.
func (f *FlatBinary) LoadEvents(_ context.Context, directory string, rec *recording.Recording) error {
	m, err := f.readManifest(directory)
	if err != nil {
		return err
	}

	for _, entry := range m.Events {
		contents, err := os.ReadFile(filepath.Clean(filepath.Join(directory, entry.File)))
		if err != nil {
			return fmt.Errorf("event source %q: %w", entry.Source, err)
		}

		var rows []ttlEventRecord
		if err := json.Unmarshal(contents, &rows); err != nil {
			return fmt.Errorf("event source %q: %w", entry.Source, err)
		}

		events := make([]recording.TTLEvent, len(rows))
		for i, row := range rows {
			events[i] = recording.TTLEvent{
				Line:         row.Line,
				State:        row.State,
				SampleNumber: row.SampleNumber,
				Timestamp:    row.Timestamp,
				ProcessorID:  row.ProcessorID,
				StreamName:   row.StreamName,
			}
		}

		rec.AddEvents(entry.Source, events)
	}

	return nil
}

// LoadSpikes reads every spike source's sample numbers and cluster IDs.
func (f *FlatBinary) LoadSpikes(_ context.Context, directory string, rec *recording.Recording) error {
	m, err := f.readManifest(directory)
	if err != nil {
		return err
	}

	for _, entry := range m.Spikes {
		sampleNumbers, err := readInt64File(filepath.Join(directory, entry.SampleNumbersFile))
		if err != nil {
			return fmt.Errorf("spike source %q sample numbers: %w", entry.Name, err)
		}

		var clusterIDs []int32

		if entry.ClusterIDsFile != "" {
			clusterIDs, err = readInt32File(filepath.Join(directory, entry.ClusterIDsFile))
			if err != nil {
				return fmt.Errorf("spike source %q cluster IDs: %w", entry.Name, err)
			}

			if len(clusterIDs) != len(sampleNumbers) {
				return fmt.Errorf("spike source %q: %d cluster IDs for %d spikes",
					entry.Name, len(clusterIDs), len(sampleNumbers))
			}
		}

		rec.AddSpikes(&recording.SpikeSource{
			Name:          entry.Name,
			StreamName:    entry.StreamName,
			SampleNumbers: sampleNumbers,
			ClusterIDs:    clusterIDs,
		})
	}

	return nil
}

// readManifest parses the manifest file of the directory.
func (f *FlatBinary) readManifest(directory string) (*manifest, error) {
	contents, err := os.ReadFile(filepath.Clean(filepath.Join(directory, manifestFilename)))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(contents, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	return &m, nil
}

// readInt64File reads a little-endian int64 array file.
func readInt64File(path string) ([]int64, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	if len(contents)%8 != 0 {
		return nil, fmt.Errorf("file size %d is not a multiple of 8", len(contents))
	}

	values := make([]int64, len(contents)/8)
	for i := range values {
		values[i] = int64(binary.LittleEndian.Uint64(contents[i*8:]))
	}

	return values, nil
}

// readInt32File reads a little-endian int32 array file.
func readInt32File(path string) ([]int32, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	if len(contents)%4 != 0 {
		return nil, fmt.Errorf("file size %d is not a multiple of 4", len(contents))
	}

	values := make([]int32, len(contents)/4)
	for i := range values {
		values[i] = int32(binary.LittleEndian.Uint32(contents[i*4:]))
	}

	return values, nil
}

// readInt16File reads a little-endian int16 array file.
func readInt16File(path string) ([]int16, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	if len(contents)%2 != 0 {
		return nil, fmt.Errorf("file size %d is not a multiple of 2", len(contents))
	}

	values := make([]int16, len(contents)/2)
	for i := range values {
		values[i] = int16(binary.LittleEndian.Uint16(contents[i*2:]))
	}

	return values, nil
}

// WriteFloat64File writes a little-endian float64 array file. The sync
// service uses it to export per-stream global timestamps.
func WriteFloat64File(path string, values []float64) error {
	contents := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(contents[i*8:], math.Float64bits(v))
	}

	return os.WriteFile(filepath.Clean(path), contents, 0o600)
}
