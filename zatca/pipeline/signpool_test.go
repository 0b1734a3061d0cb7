package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatoora-dev/go-zatca-client/zatca/xmldsig"
)

func TestSignPoolConcurrentSigning(t *testing.T) {
	canon, err := xmldsig.NewCanonicalizer()
	require.NoError(t, err)
	pool := NewSignPool(xmldsig.NewSigner(canon), 2)

	asset := newMemStore(t).asset
	xml := []byte(`<Invoice><ID>1</ID></Invoice>`)

	var wg sync.WaitGroup
	results := make([]*xmldsig.SignResult, 8)
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = pool.Sign(context.Background(), xml, asset)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		// the canonical digest is the same for every run
		assert.Equal(t, results[0].InvoiceHash, results[i].InvoiceHash)
	}
}

func TestSignPoolHonorsCancelledContext(t *testing.T) {
	canon, err := xmldsig.NewCanonicalizer()
	require.NoError(t, err)
	pool := NewSignPool(xmldsig.NewSigner(canon), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = pool.Sign(ctx, []byte(`<Invoice/>`), newMemStore(t).asset)
	assert.Error(t, err)
}
