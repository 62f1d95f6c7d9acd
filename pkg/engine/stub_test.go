package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/getimposd/imposd/pkg/imposter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isEntry(status int, body string) imposter.Response {
	return imposter.Response{Is: &imposter.ISResponse{StatusCode: status, Body: body}}
}

func proxyEntry(to string, mode imposter.ProxyMode) imposter.Response {
	return imposter.Response{Proxy: &imposter.ProxyResponse{To: to, Mode: mode}}
}

func TestStubCursorAdvancesAndSticks(t *testing.T) {
	t.Parallel()

	st := newStubRuntime(imposter.Stub{
		Responses: []imposter.Response{
			isEntry(201, "first"),
			isEntry(202, "second"),
			isEntry(203, "third"),
		},
	})

	var got []int
	for i := 0; i < 5; i++ {
		sel := st.take()
		require.Equal(t, imposter.KindIs, sel.kind)
		got = append(got, sel.is.StatusCode)
	}

	// The sequence is served in order, then the last entry repeats for
	// every further match.
	assert.Equal(t, []int{201, 202, 203, 203, 203}, got)
}

func TestStubRepeatBehavior(t *testing.T) {
	t.Parallel()

	t.Run("entry repeats before advancing", func(t *testing.T) {
		t.Parallel()
		first := isEntry(200, "a")
		first.Behaviors = &imposter.Behaviors{Repeat: 3}
		st := newStubRuntime(imposter.Stub{
			Responses: []imposter.Response{first, isEntry(200, "b")},
		})

		var got []string
		for i := 0; i < 5; i++ {
			got = append(got, st.take().is.Body)
		}
		assert.Equal(t, []string{"a", "a", "a", "b", "b"}, got)
	})

	t.Run("repeat below two means once", func(t *testing.T) {
		t.Parallel()
		first := isEntry(200, "a")
		first.Behaviors = &imposter.Behaviors{Repeat: 1}
		st := newStubRuntime(imposter.Stub{
			Responses: []imposter.Response{first, isEntry(200, "b")},
		})

		assert.Equal(t, "a", st.take().is.Body)
		assert.Equal(t, "b", st.take().is.Body)
	})
}

func TestStubTakeEmptyResponses(t *testing.T) {
	t.Parallel()

	st := newStubRuntime(imposter.Stub{})
	sel := st.take()
	assert.Equal(t, imposter.KindUnknown, sel.kind)
	assert.Nil(t, sel.is)
	assert.Nil(t, sel.entry)
}

func TestStubTakeReturnsCopies(t *testing.T) {
	t.Parallel()

	st := newStubRuntime(imposter.Stub{
		Responses: []imposter.Response{isEntry(200, "body")},
	})

	sel := st.take()
	sel.is.Body = "mutated"
	sel.is.Headers = map[string]string{"X-Oops": "1"}

	again := st.take()
	assert.Equal(t, "body", again.is.Body)
	assert.Empty(t, again.is.Headers)
}

func TestStubTakeConcurrent(t *testing.T) {
	t.Parallel()

	t.Run("two takers split a two entry sequence", func(t *testing.T) {
		t.Parallel()
		st := newStubRuntime(imposter.Stub{
			Responses: []imposter.Response{isEntry(201, ""), isEntry(202, "")},
		})

		results := make(chan int, 2)
		var wg sync.WaitGroup
		wg.Add(2)
		for i := 0; i < 2; i++ {
			go func() {
				defer wg.Done()
				results <- st.take().is.StatusCode
			}()
		}
		wg.Wait()
		close(results)

		seen := map[int]int{}
		for code := range results {
			seen[code]++
		}
		// Each position is observed exactly once regardless of
		// goroutine scheduling.
		assert.Equal(t, map[int]int{201: 1, 202: 1}, seen)
	})

	t.Run("many takers on a single entry", func(t *testing.T) {
		t.Parallel()
		st := newStubRuntime(imposter.Stub{
			Responses: []imposter.Response{isEntry(200, "only")},
		})

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sel := st.take()
				assert.Equal(t, 200, sel.is.StatusCode)
				assert.Equal(t, "only", sel.is.Body)
			}()
		}
		wg.Wait()
	})
}

func TestStubRecordOnce(t *testing.T) {
	t.Parallel()

	st := newStubRuntime(imposter.Stub{
		Responses: []imposter.Response{proxyEntry("http://origin", imposter.ProxyOnce)},
	})
	entry := st.entries[0]

	first := &imposter.ISResponse{StatusCode: 200, Body: "winner"}
	second := &imposter.ISResponse{StatusCode: 200, Body: "loser"}

	assert.True(t, st.recordOnce(entry, first))
	assert.False(t, st.recordOnce(entry, second), "a racing capture must be dropped")
	assert.Equal(t, "winner", entry.captured.Body)

	// The converted entry now serves the capture instead of proxying.
	sel := st.take()
	assert.Equal(t, imposter.KindIs, sel.kind)
	assert.Equal(t, "winner", sel.is.Body)
}

func TestStubRecordAlways(t *testing.T) {
	t.Parallel()

	st := newStubRuntime(imposter.Stub{
		Responses: []imposter.Response{proxyEntry("http://origin", imposter.ProxyAlways)},
	})

	for i := 0; i < 3; i++ {
		st.recordAlways(&imposter.ISResponse{Body: fmt.Sprintf("rec-%d", i)})
	}
	assert.Equal(t, 3, st.recordedCount())

	// The entry itself never converts; every take still proxies.
	sel := st.take()
	assert.Equal(t, imposter.KindProxy, sel.kind)
}

func TestStubClearRecorded(t *testing.T) {
	t.Parallel()

	st := newStubRuntime(imposter.Stub{
		Responses: []imposter.Response{
			proxyEntry("http://a", imposter.ProxyOnce),
			proxyEntry("http://b", imposter.ProxyAlways),
		},
	})
	st.recordOnce(st.entries[0], &imposter.ISResponse{Body: "cap"})
	st.recordAlways(&imposter.ISResponse{Body: "rec"})

	st.clearRecorded()

	assert.Zero(t, st.recordedCount())
	assert.Nil(t, st.entries[0].captured)

	sel := st.take()
	assert.Equal(t, imposter.KindProxy, sel.kind, "cleared entry proxies again")
}

func TestStubDefinition(t *testing.T) {
	t.Parallel()

	build := func() *stubRuntime {
		st := newStubRuntime(imposter.Stub{
			Predicates: []imposter.Predicate{{Equals: map[string]any{"path": "/x"}}},
			Responses: []imposter.Response{
				isEntry(200, "literal"),
				proxyEntry("http://origin", imposter.ProxyAlways),
			},
		})
		st.recordAlways(&imposter.ISResponse{StatusCode: 200, Body: "rec-0"})
		st.recordAlways(&imposter.ISResponse{StatusCode: 200, Body: "rec-1"})
		return st
	}

	t.Run("plain keeps proxies and hides recordings", func(t *testing.T) {
		t.Parallel()
		def := build().definition(false, false)
		require.Len(t, def.Responses, 2)
		assert.Equal(t, "literal", def.Responses[0].Is.Body)
		assert.NotNil(t, def.Responses[1].Proxy)
	})

	t.Run("replayable folds recordings ahead of the proxy", func(t *testing.T) {
		t.Parallel()
		def := build().definition(true, false)
		require.Len(t, def.Responses, 4)
		assert.Equal(t, "literal", def.Responses[0].Is.Body)
		assert.Equal(t, "rec-0", def.Responses[1].Is.Body)
		assert.Equal(t, "rec-1", def.Responses[2].Is.Body)
		assert.NotNil(t, def.Responses[3].Proxy)
	})

	t.Run("replayable with removeProxies strips the proxy", func(t *testing.T) {
		t.Parallel()
		def := build().definition(true, true)
		require.Len(t, def.Responses, 3)
		assert.Equal(t, "rec-0", def.Responses[1].Is.Body)
		assert.Equal(t, "rec-1", def.Responses[2].Is.Body)
		for _, r := range def.Responses {
			assert.Nil(t, r.Proxy)
		}
	})

	t.Run("removeProxies alone strips without folding", func(t *testing.T) {
		t.Parallel()
		def := build().definition(false, true)
		require.Len(t, def.Responses, 1)
		assert.Equal(t, "literal", def.Responses[0].Is.Body)
	})

	t.Run("converted proxyOnce appears as its capture", func(t *testing.T) {
		t.Parallel()
		st := newStubRuntime(imposter.Stub{
			Responses: []imposter.Response{proxyEntry("http://origin", imposter.ProxyOnce)},
		})
		st.recordOnce(st.entries[0], &imposter.ISResponse{StatusCode: 200, Body: "cap"})

		def := st.definition(false, false)
		require.Len(t, def.Responses, 1)
		require.NotNil(t, def.Responses[0].Is)
		assert.Equal(t, "cap", def.Responses[0].Is.Body)
	})

	t.Run("recordings fold once with multiple proxy entries", func(t *testing.T) {
		t.Parallel()
		st := newStubRuntime(imposter.Stub{
			Responses: []imposter.Response{
				proxyEntry("http://a", imposter.ProxyAlways),
				proxyEntry("http://b", imposter.ProxyAlways),
			},
		})
		st.recordAlways(&imposter.ISResponse{Body: "rec"})

		def := st.definition(true, false)
		require.Len(t, def.Responses, 3)
		assert.Equal(t, "rec", def.Responses[0].Is.Body)
		assert.NotNil(t, def.Responses[1].Proxy)
		assert.NotNil(t, def.Responses[2].Proxy)
	})
}
