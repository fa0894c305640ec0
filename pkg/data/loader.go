package data

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/charmbracelet/log"
)

// Loader is an interface for data loaders.
type Loader interface {
	NextBatch() (Batch, error)
	Reset()
}

// LoaderOptions configures a DataLoader.
type LoaderOptions struct {
	// BatchSize is the number of examples per batch.
	BatchSize int
	// Shuffle draws a new random traversal order at the start of every pass.
	Shuffle bool
	// DropLast suppresses a final batch smaller than BatchSize.
	DropLast bool
	// Workers is the number of goroutines assembling batches in Batches.
	// It never changes which batches are produced or their order.
	Workers int
	// Seed seeds the loader's random source.
	Seed int64
}

// DataLoader groups the examples of a Dataset into batches.
//
// A DataLoader is not safe for concurrent use; the Dataset it reads is.
type DataLoader struct {
	dataset   *Dataset
	batchSize int
	workers   int
	shuffle   bool
	dropLast  bool
	rng       *rand.Rand

	order  []int
	curPos int
	active bool
	epoch  int
}

var _ Loader = (*DataLoader)(nil)

// NewDataLoader returns a new DataLoader over ds.
func NewDataLoader(ds *Dataset, opts LoaderOptions) (*DataLoader, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: nil dataset", ErrInvalidConfig)
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, opts.BatchSize)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	return &DataLoader{
		dataset:   ds,
		batchSize: opts.BatchSize,
		workers:   workers,
		shuffle:   opts.Shuffle,
		dropLast:  opts.DropLast,
		rng:       rand.New(rand.NewSource(opts.Seed)),
		order:     make([]int, ds.Len()),
	}, nil
}

// Dataset returns the dataset the loader reads from.
func (loader *DataLoader) Dataset() *Dataset {
	return loader.dataset
}

// NumBatches returns the number of batches in one pass.
func (loader *DataLoader) NumBatches() int {
	n := loader.dataset.Len()
	if loader.dropLast {
		return n / loader.batchSize
	}
	return (n + loader.batchSize - 1) / loader.batchSize
}

// Epoch returns the number of passes started so far.
func (loader *DataLoader) Epoch() int {
	return loader.epoch
}

// Reset abandons the current pass. The next batch starts a new one.
func (loader *DataLoader) Reset() {
	loader.active = false
	loader.curPos = 0
}

// NextBatch returns the next batch of the current pass, or io.EOF once the
// pass is exhausted. The call after io.EOF starts a new pass.
func (loader *DataLoader) NextBatch() (Batch, error) {
	if !loader.active {
		loader.startPass()
	}
	group, ok := loader.nextGroup()
	if !ok {
		loader.active = false
		return Batch{}, io.EOF
	}
	return loader.assemble(group), nil
}

// Batches starts one full pass whose batches are assembled ahead of the
// consumer on up to Workers goroutines. Batches come out of Pass.Next in
// traversal order. A consumer may stop calling Next at any time; assembly
// goroutines never outlive the batch they build.
func (loader *DataLoader) Batches(ctx context.Context) *Pass {
	loader.startPass()
	groups := make([][]int, 0, loader.NumBatches())
	for {
		group, ok := loader.nextGroup()
		if !ok {
			break
		}
		groups = append(groups, append([]int(nil), group...))
	}
	loader.active = false

	results := make([]chan Batch, len(groups))
	for i := range results {
		results[i] = make(chan Batch, 1)
	}
	return &Pass{
		ctx:     ctx,
		loader:  loader,
		groups:  groups,
		results: results,
		window:  loader.workers,
	}
}

// Pass is one traversal of a DataLoader started by Batches.
// A Pass is not safe for concurrent use.
type Pass struct {
	ctx     context.Context
	loader  *DataLoader
	groups  [][]int
	results []chan Batch
	window  int
	next    int
	issued  int
}

// Len returns the number of batches in the pass.
func (p *Pass) Len() int {
	return len(p.groups)
}

// Next returns the next batch, io.EOF once the pass is exhausted, or the
// context's error if it ends first.
func (p *Pass) Next() (Batch, error) {
	if p.next == len(p.groups) {
		return Batch{}, io.EOF
	}
	if err := p.ctx.Err(); err != nil {
		return Batch{}, err
	}
	p.fill()
	var batch Batch
	select {
	case <-p.ctx.Done():
		return Batch{}, p.ctx.Err()
	case batch = <-p.results[p.next]:
	}
	p.results[p.next] = nil
	p.next++
	p.fill()
	return batch, nil
}

// fill keeps up to window batches in flight. Each result channel has room
// for its batch, so an assembling goroutine never blocks.
func (p *Pass) fill() {
	for p.issued < len(p.groups) && p.issued-p.next < p.window {
		group, result := p.groups[p.issued], p.results[p.issued]
		go func() {
			result <- p.loader.assemble(group)
		}()
		p.issued++
	}
}

func (loader *DataLoader) startPass() {
	for i := range loader.order {
		loader.order[i] = i
	}
	if loader.shuffle {
		loader.rng.Shuffle(len(loader.order), func(i, j int) {
			loader.order[i], loader.order[j] = loader.order[j], loader.order[i]
		})
	}
	loader.curPos = 0
	loader.active = true
	loader.epoch++
	log.Debug("starting pass",
		"epoch", loader.epoch,
		"examples", len(loader.order),
		"batches", loader.NumBatches(),
		"shuffle", loader.shuffle,
	)
}

// nextGroup returns the next run of indices in traversal order. The slice
// aliases loader.order.
func (loader *DataLoader) nextGroup() ([]int, bool) {
	remaining := len(loader.order) - loader.curPos
	if remaining == 0 || (loader.dropLast && remaining < loader.batchSize) {
		return nil, false
	}
	end := loader.curPos + min(loader.batchSize, remaining)
	group := loader.order[loader.curPos:end]
	loader.curPos = end
	return group, true
}

func (loader *DataLoader) assemble(group []int) Batch {
	batch := Batch{
		Indices: append([]int(nil), group...),
		Inputs:  make([][]int32, len(group)),
		Targets: make([][]int32, len(group)),
	}
	for row, index := range group {
		example := loader.dataset.examples[index]
		batch.Inputs[row] = example.Input
		batch.Targets[row] = example.Target
	}
	return batch
}
