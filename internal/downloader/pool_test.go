package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igresolver/pkg/media"
)

// fakeClient serves canned bytes per URL and tracks concurrency.
type fakeClient struct {
	mu      sync.Mutex
	data    map[string][]byte
	failURL string

	inFlight    int32
	maxInFlight int32
}

func (f *fakeClient) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)

	f.mu.Lock()
	if cur > f.maxInFlight {
		f.maxInFlight = cur
	}
	f.mu.Unlock()

	if mediaURL == f.failURL {
		return nil, errors.New("connection reset")
	}
	if data, ok := f.data[mediaURL]; ok {
		return data, nil
	}
	return []byte("default"), nil
}

func carouselItems(n int) []media.Descriptor {
	items := make([]media.Descriptor, n)
	for i := range items {
		items[i] = media.Descriptor{
			Index:    i,
			MediaURL: fmt.Sprintf("https://cdn.example/item_%d.jpg", i),
		}
	}
	return items
}

func TestDownloadAllWritesEveryItemInOrder(t *testing.T) {
	dir := t.TempDir()
	client := &fakeClient{data: map[string][]byte{
		"https://cdn.example/item_0.jpg": []byte("zero"),
		"https://cdn.example/item_1.jpg": []byte("one"),
		"https://cdn.example/item_2.jpg": []byte("two"),
	}}
	pool := NewWorkerPool(3, client, nil, nil)

	paths, err := pool.DownloadAll(context.Background(), "CAR1", carouselItems(3), dir)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	for i, want := range []string{"zero", "one", "two"} {
		assert.Equal(t, filepath.Join(dir, fmt.Sprintf("CAR1_%d.jpg", i)), paths[i])
		data, err := os.ReadFile(paths[i])
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}
}

func TestDownloadAllFirstFailureFailsTheCall(t *testing.T) {
	dir := t.TempDir()
	client := &fakeClient{failURL: "https://cdn.example/item_1.jpg"}
	pool := NewWorkerPool(2, client, nil, nil)

	_, err := pool.DownloadAll(context.Background(), "CAR1", carouselItems(3), dir)
	assert.Error(t, err)
}

func TestDownloadAllBoundsConcurrency(t *testing.T) {
	dir := t.TempDir()
	client := &fakeClient{}
	pool := NewWorkerPool(2, client, nil, nil)

	_, err := pool.DownloadAll(context.Background(), "CAR1", carouselItems(8), dir)
	require.NoError(t, err)
	assert.LessOrEqual(t, client.maxInFlight, int32(2))
}

func TestDownloadAllSingleItem(t *testing.T) {
	dir := t.TempDir()
	pool := NewWorkerPool(4, &fakeClient{}, nil, nil)

	paths, err := pool.DownloadAll(context.Background(), "ABC123", carouselItems(1), dir)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.FileExists(t, paths[0])
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		item media.Descriptor
		want string
	}{
		{media.Descriptor{MediaURL: "https://cdn.example/a.jpg?se=7"}, ".jpg"},
		{media.Descriptor{MediaURL: "https://cdn.example/a.mp4"}, ".mp4"},
		{media.Descriptor{MediaURL: "https://cdn.example/noext", IsVideo: true}, ".mp4"},
		{media.Descriptor{MediaURL: "https://cdn.example/noext", IsVideo: false}, ".jpg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extensionFor(tt.item), tt.item.MediaURL)
	}
}

func TestWriteFileAtomicLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "ABC123_0.jpg")

	require.NoError(t, writeFileAtomic(target, []byte("bytes")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ABC123_0.jpg", entries[0].Name())
}
