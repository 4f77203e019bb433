package filter

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"Go2FlowText/internal/model"
	"Go2FlowText/pkg/pcap"
)

const (
	// MinFileSize is the smallest capture, in bytes, worth turning into a flow.
	MinFileSize = 2 * 1024
	// MinPackets is the packet count a capture needs to be accepted.
	MinPackets = 3
	// MaxPackets is the number of leading packets kept per flow.
	MaxPackets = 5
)

// Partition deals paths round-robin into n slices: slice i holds paths
// i, i+n, i+2n, ... Slices are not balanced by file size.
func Partition(paths []string, n int) [][]string {
	if n <= 0 {
		n = 1
	}
	slices := make([][]string, n)
	for i, p := range paths {
		slices[i%n] = append(slices[i%n], p)
	}
	return slices
}

// FilterFlows runs the size and packet-count gates over paths in order and
// collects the leading packets and session features of every accepted file.
func FilterFlows(ctx context.Context, paths []string, features model.FeatureSource) (*model.WorkerResult, error) {
	result := &model.WorkerResult{}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat '%s': %w", p, err)
		}
		if info.Size() < MinFileSize {
			continue
		}

		count, err := pcap.CountPackets(p, MinPackets)
		if err != nil || count < MinPackets {
			continue
		}

		feature, err := features.SessionFeature(p)
		if err != nil {
			return nil, fmt.Errorf("failed to get session feature for '%s': %w", p, err)
		}
		packets, linkType, err := pcap.ReadPackets(p, MaxPackets)
		if err != nil && len(packets) < MinPackets {
			continue
		}
		result.Append(packets, int(linkType), feature)
	}
	return result, nil
}

// ListCaptures returns the *.pcap files of dir in name order.
func ListCaptures(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.pcap"))
	if err != nil {
		return nil, fmt.Errorf("failed to list captures in '%s': %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

type workerOutput struct {
	worker int
	result *model.WorkerResult
	err    error
}

// Run filters every capture of dir with numWorkers concurrent workers. Worker
// results are concatenated in completion order; each worker's own flows stay
// in its input order. Any worker error fails the whole directory.
func Run(ctx context.Context, dir string, numWorkers int, features model.FeatureSource) (*model.WorkerResult, error) {
	paths, err := ListCaptures(dir)
	if err != nil {
		return nil, err
	}
	return RunPaths(ctx, paths, numWorkers, features)
}

// RunPaths is Run over an explicit file list.
func RunPaths(ctx context.Context, paths []string, numWorkers int, features model.FeatureSource) (*model.WorkerResult, error) {
	slices := Partition(paths, numWorkers)
	outputs := make(chan workerOutput, len(slices))

	for i, slice := range slices {
		go func(i int, slice []string) {
			res, err := FilterFlows(ctx, slice, features)
			outputs <- workerOutput{worker: i, result: res, err: err}
		}(i, slice)
	}

	merged := &model.WorkerResult{}
	var firstErr error
	for range slices {
		out := <-outputs
		if out.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("worker %d: %w", out.worker, out.err)
			}
			continue
		}
		if firstErr == nil {
			merged.Merge(out.result)
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	log.Printf("Filtered %d captures into %d flows with %d workers", len(paths), merged.Flows(), len(slices))
	return merged, nil
}
