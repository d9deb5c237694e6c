package features

import (
	"context"
	"fmt"
)

// Encoder is the pretrained convolutional model. It is opaque here: any
// implementation that maps a [N,1,n_mels,frames] batch to N vectors works.
type Encoder interface {
	Embed(ctx context.Context, batch *Batch) ([][]float64, error)
}

// Batch is a contiguous float32 tensor of shape [N, 1, Mels, Frames] in
// row-major order, the layout the encoder consumes
type Batch struct {
	Data   []float32
	N      int
	Mels   int
	Frames int
}

// Shape returns [N, 1, Mels, Frames]
func (b *Batch) Shape() []int {
	return []int{b.N, 1, b.Mels, b.Frames}
}

// Item returns a view of the i-th [Mels*Frames] slab
func (b *Batch) Item(i int) []float32 {
	size := b.Mels * b.Frames
	return b.Data[i*size : (i+1)*size]
}

// Stack copies equally shaped tensors into one batch
func Stack(tensors []FeatureTensor) (*Batch, error) {
	if len(tensors) == 0 {
		return &Batch{}, nil
	}

	want := tensors[0].Shape()
	mels, frames := want[0], want[1]
	batch := &Batch{
		Data:   make([]float32, 0, len(tensors)*mels*frames),
		N:      len(tensors),
		Mels:   mels,
		Frames: frames,
	}

	for i, t := range tensors {
		if len(t) != mels {
			return nil, &ShapeError{What: fmt.Sprintf("batch item %d", i), Got: t.Shape(), Want: want}
		}
		for _, row := range t {
			if len(row) != frames {
				return nil, &ShapeError{What: fmt.Sprintf("batch item %d", i), Got: []int{len(t), len(row)}, Want: want}
			}
			for _, v := range row {
				batch.Data = append(batch.Data, float32(v))
			}
		}
	}

	return batch, nil
}

// EmbedAll stacks tensors, runs the encoder and checks that it returned
// one vector of length dim per tensor
func EmbedAll(ctx context.Context, enc Encoder, tensors []FeatureTensor, dim int) ([][]float64, error) {
	batch, err := Stack(tensors)
	if err != nil {
		return nil, err
	}
	if batch.N == 0 {
		return nil, nil
	}

	vectors, err := enc.Embed(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}

	if len(vectors) != batch.N {
		return nil, &ShapeError{What: "embedding batch", Got: []int{len(vectors)}, Want: []int{batch.N}}
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, &ShapeError{What: fmt.Sprintf("embedding %d", i), Got: []int{len(v)}, Want: []int{dim}}
		}
	}

	return vectors, nil
}
