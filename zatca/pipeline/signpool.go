package pipeline

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/fatoora-dev/go-zatca-client/zatca/certs"
	"github.com/fatoora-dev/go-zatca-client/zatca/xmldsig"
)

// SignPool bounds concurrent signature computation. Signing is CPU-bound;
// without the bound a burst of invoices would starve the I/O goroutines.
type SignPool struct {
	signer *xmldsig.Signer
	sem    *semaphore.Weighted
}

func NewSignPool(signer *xmldsig.Signer, workers int64) *SignPool {
	if workers < 1 {
		workers = 1
	}
	return &SignPool{signer: signer, sem: semaphore.NewWeighted(workers)}
}

// Sign waits for a worker slot (honoring ctx) and runs the signer.
func (p *SignPool) Sign(ctx context.Context, xml []byte, asset *certs.SigningAsset) (*xmldsig.SignResult, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	type outcome struct {
		res *xmldsig.SignResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := p.signer.Sign(xml, asset)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
