package pipeline

import (
	"Go2FlowText/internal/config"
	"Go2FlowText/internal/dataset"
	"Go2FlowText/internal/events"
	"Go2FlowText/internal/extract"
	"Go2FlowText/internal/factory"
	"Go2FlowText/internal/filter"
	"Go2FlowText/internal/model"
	"Go2FlowText/internal/notification"
	"Go2FlowText/internal/session"
	_ "Go2FlowText/internal/writer" // Registers the csv, gob and clickhouse writers
	"Go2FlowText/pkg/pcap"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// ErrNoFlows is returned when no class directory produced a single flow.
var ErrNoFlows = errors.New("no flows survived filtering in any class directory")

// ClassPublisher receives one event per converted class.
type ClassPublisher interface {
	PublishClass(ev events.ClassEvent) error
}

// Deps are the collaborators of a Runner. Nil members are optional except
// Features and Extractor.
type Deps struct {
	Features  model.FeatureSource
	Extractor model.FieldExtractor
	Writers   []model.Writer
	Publisher ClassPublisher
	Notifier  model.Notifier
}

// Runner converts a tree of per-class session captures into a text dataset.
type Runner struct {
	cfg     *config.Config
	deps    Deps
	builder *extract.Builder
	task    string
}

// New creates a Runner from a config and explicit collaborators.
func New(cfg *config.Config, deps Deps) (*Runner, error) {
	if deps.Features == nil || deps.Extractor == nil {
		return nil, fmt.Errorf("pipeline requires a feature source and a field extractor")
	}
	task := cfg.Pipeline.Task
	if task == "" {
		task = dataset.TaskForDataset(cfg.Pipeline.DatasetName)
	}
	return &Runner{
		cfg:     cfg,
		deps:    deps,
		builder: extract.NewBuilder(deps.Extractor, cfg.Extractor.Fields),
		task:    task,
	}, nil
}

// NewFromConfig wires the production collaborators selected by cfg.
func NewFromConfig(cfg *config.Config) (*Runner, error) {
	features, err := session.NewSource(cfg.Features)
	if err != nil {
		return nil, err
	}
	writers, err := factory.CreateWriters(cfg)
	if err != nil {
		return nil, err
	}

	deps := Deps{
		Features:  features,
		Extractor: extract.NewTShark(cfg.Extractor.TSharkPath),
		Writers:   writers,
	}
	if cfg.Events.Enabled {
		pub, err := events.NewPublisher(cfg.Events)
		if err != nil {
			return nil, fmt.Errorf("failed to connect event publisher: %w", err)
		}
		deps.Publisher = pub
	}
	if cfg.SMTP.Host != "" {
		deps.Notifier = notification.NewEmailNotifier(cfg.SMTP)
	}
	return New(cfg, deps)
}

// Task returns the task code used for assembling rows.
func (r *Runner) Task() string {
	return r.task
}

// ClassDirs returns the class sub-directories of <input>/flow in the order the
// filesystem lists them. Label ids are assigned in this order.
func ClassDirs(inputDir string) ([]string, error) {
	flowDir := filepath.Join(inputDir, "flow")
	f, err := os.Open(flowDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read class directory '%s': %w", flowDir, err)
	}
	defer f.Close()
	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read class directory '%s': %w", flowDir, err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(flowDir, e.Name()))
		}
	}
	return dirs, nil
}

// Run processes every class directory, writes the dataset with every writer
// and sends the run summary.
func (r *Runner) Run(ctx context.Context) (*model.Dataset, error) {
	start := time.Now()
	ds, err := r.build(ctx)
	if err == nil {
		err = r.write(ds)
	}
	r.notify(ds, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func (r *Runner) build(ctx context.Context) (*model.Dataset, error) {
	pc := r.cfg.Pipeline
	if err := os.MkdirAll(pc.FilteredDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create filtered directory: %w", err)
	}
	dirs, err := ClassDirs(pc.InputDir)
	if err != nil {
		return nil, err
	}

	ds := &model.Dataset{Name: pc.DatasetName}
	labels := dataset.NewLabelRegistry()
	log.Printf("Converting %d class directories for dataset '%s' with task %s", len(dirs), pc.DatasetName, r.task)

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		class := filepath.Base(dir)
		log.Printf("Processing directory: %s", class)

		flows, packets, err := r.ProcessClass(ctx, dir)
		if err != nil {
			return nil, fmt.Errorf("class '%s': %w", class, err)
		}
		if len(flows) == 0 {
			log.Printf("Total packets and flows after filtering: 0, 0")
			continue
		}

		id := labels.Register(class)
		train, val, test := dataset.Split(flows)
		ds.All = append(ds.All, dataset.Assemble(flows, id, class, r.task, pc.Granularity)...)
		ds.Train = append(ds.Train, dataset.Assemble(train, id, class, r.task, pc.Granularity)...)
		ds.Val = append(ds.Val, dataset.Assemble(val, id, class, r.task, pc.Granularity)...)
		ds.Test = append(ds.Test, dataset.Assemble(test, id, class, r.task, pc.Granularity)...)

		r.publish(events.ClassEvent{
			Dataset: pc.DatasetName,
			Class:   class,
			Label:   id,
			Packets: packets,
			Flows:   len(flows),
			Train:   len(train),
			Val:     len(val),
			Test:    len(test),
			Time:    time.Now(),
		})
	}

	if labels.Len() == 0 {
		return nil, ErrNoFlows
	}
	ds.Labels = labels.Entries()
	return ds, nil
}

// ProcessClass filters one class directory, writes its merged capture and
// returns the flow texts together with the number of packets kept.
func (r *Runner) ProcessClass(ctx context.Context, dir string) ([]string, int, error) {
	result, err := filter.Run(ctx, dir, r.cfg.Pipeline.NumWorkers, r.deps.Features)
	if err != nil {
		return nil, 0, err
	}
	if len(result.Packets) == 0 {
		return nil, 0, nil
	}
	log.Printf("Total packets and flows after filtering: %d, %d", len(result.Packets), result.Flows())

	merged := filepath.Join(r.cfg.Pipeline.FilteredDir, filepath.Base(dir)+".pcap")
	if err := pcap.WriteMerged(merged, result); err != nil {
		return nil, 0, err
	}

	flows, err := r.builder.Build(ctx, merged, result.PacketCounts, result.Features)
	if err != nil {
		return nil, 0, err
	}
	log.Printf("Total flows after building: %d", len(flows))
	return flows, len(result.Packets), nil
}

func (r *Runner) write(ds *model.Dataset) error {
	for _, w := range r.deps.Writers {
		if err := w.Write(ds); err != nil {
			return fmt.Errorf("writer '%s' failed: %w", w.Name(), err)
		}
	}
	return nil
}

func (r *Runner) publish(ev events.ClassEvent) {
	if r.deps.Publisher == nil {
		return
	}
	if err := r.deps.Publisher.PublishClass(ev); err != nil {
		log.Printf("Warning: failed to publish event for class '%s': %v", ev.Class, err)
	}
}

func (r *Runner) notify(ds *model.Dataset, elapsed time.Duration, runErr error) {
	if r.deps.Notifier == nil {
		return
	}
	if ds == nil {
		ds = &model.Dataset{Name: r.cfg.Pipeline.DatasetName}
	}
	subject, body := notification.RunSummary(ds, elapsed, runErr)
	if err := r.deps.Notifier.Send(subject, body); err != nil {
		log.Printf("Warning: failed to send run summary: %v", err)
	}
}

// Close releases the publisher connection and any writer holding one.
func (r *Runner) Close() {
	if c, ok := r.deps.Publisher.(interface{ Close() }); ok {
		c.Close()
	}
	for _, w := range r.deps.Writers {
		if c, ok := w.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				log.Printf("Warning: failed to close writer '%s': %v", w.Name(), err)
			}
		}
	}
}
