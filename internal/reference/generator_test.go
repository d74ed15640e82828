package reference

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Format(t *testing.T) {
	gen, err := New("NP")
	require.NoError(t, err)

	ref := gen.Generate()

	parts := strings.SplitN(ref, "-", 3)
	require.Len(t, parts, 3, "reference %q should have prefix-timestamp-suffix shape", ref)
	assert.Equal(t, "NP", parts[0])
	assert.NotEmpty(t, parts[1])
	assert.Len(t, parts[2], suffixLen)
}

func TestGenerate_ConcurrentUniqueness(t *testing.T) {
	gen, err := New("NP")
	require.NoError(t, err)

	const total = 10000
	const workers = 20

	refs := make(chan string, total)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < total/workers; i++ {
				refs <- gen.Generate()
			}
		}()
	}
	wg.Wait()
	close(refs)

	seen := make(map[string]struct{}, total)
	for ref := range refs {
		if _, dup := seen[ref]; dup {
			t.Fatalf("duplicate reference generated: %s", ref)
		}
		seen[ref] = struct{}{}
	}
	assert.Len(t, seen, total)
}
