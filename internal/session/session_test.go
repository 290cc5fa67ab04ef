package session

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/KaramelBytes/ainsight/internal/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCreateGetDelete(t *testing.T) {
	s := New(time.Hour, nil)
	st := s.Create()
	require.NotEmpty(t, st.ID)
	assert.False(t, st.HasData())

	got, ok := s.Get(st.ID)
	require.True(t, ok)
	assert.Same(t, st, got)

	s.Delete(st.ID)
	_, ok = s.Get(st.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestSessionsAreIsolated(t *testing.T) {
	s := New(0, nil)
	a, b := s.Create(), s.Create()
	require.NotEqual(t, a.ID, b.ID)

	tbl, err := analysis.ParseCSV("a.csv", strings.NewReader("x\n1\n"), analysis.DefaultParseOptions())
	require.NoError(t, err)
	a.Lock()
	a.Data = tbl
	a.UploadedFileName = "a.csv"
	a.Unlock()

	assert.True(t, a.HasData())
	assert.False(t, b.HasData())
	assert.Empty(t, b.UploadedFileName)
}

func TestIdleSessionsExpire(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New(30*time.Minute, c.now)
	stale := s.Create()
	c.advance(20 * time.Minute)
	fresh := s.Create()

	c.advance(15 * time.Minute)
	_, ok := s.Get(stale.ID)
	assert.False(t, ok, "stale session should be swept")
	_, ok = s.Get(fresh.ID)
	assert.True(t, ok)

	// Get refreshes the idle clock.
	c.advance(25 * time.Minute)
	_, ok = s.Get(fresh.ID)
	assert.True(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestAcquireCreatesForUnknownID(t *testing.T) {
	s := New(time.Hour, nil)
	st := s.Acquire("does-not-exist")
	require.NotNil(t, st)
	assert.NotEqual(t, "does-not-exist", st.ID)
	assert.Same(t, st, s.Acquire(st.ID))
}

func TestConcurrentAcquire(t *testing.T) {
	s := New(time.Hour, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := s.Acquire("")
			st.Lock()
			st.KeyStatus = KeyValid
			st.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}

func TestKeyStatusString(t *testing.T) {
	assert.Equal(t, "unchecked", KeyUnchecked.String())
	assert.Equal(t, "valid", KeyValid.String())
	assert.Equal(t, "invalid", KeyInvalid.String())
	assert.Equal(t, "check_failed", KeyCheckFailed.String())
}
