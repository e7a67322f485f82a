package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg_archive_bot/database"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time      { return c.t }
func (c *clock) add(d time.Duration)   { c.t = c.t.Add(d) }

func newTestStore(ttl time.Duration) (*Store, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	s := New(ttl)
	s.now = c.now
	return s, c
}

func TestStartGetPut(t *testing.T) {
	s, _ := newTestStore(time.Minute)

	_, err := s.Get(1)
	assert.ErrorIs(t, err, ErrNoSession)

	st, replaced := s.Start(1, FlowSetup, StepSourceType)
	assert.Nil(t, replaced)
	assert.Equal(t, FlowSetup, st.Flow)

	st.Step = StepSourceLink
	st.Draft = &database.Source{Type: database.SourceChannel}
	require.True(t, s.Put(st))

	got, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, StepSourceLink, got.Step)
	assert.Equal(t, database.SourceChannel, got.Draft.Type)
}

func TestStartReplaces(t *testing.T) {
	s, _ := newTestStore(time.Minute)

	first, _ := s.Start(1, FlowSetup, StepSourceType)
	_, replaced := s.Start(1, FlowSearch, StepSearchSource)
	require.NotNil(t, replaced)
	assert.Equal(t, FlowSetup, replaced.Flow)
	assert.Equal(t, "setup", replaced.Label())

	// устаревшая копия не перезаписывает новый диалог
	first.Step = StepTitle
	assert.False(t, s.Put(first))

	got, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, FlowSearch, got.Flow)
}

func TestExpiry(t *testing.T) {
	s, c := newTestStore(30 * time.Minute)

	s.Start(1, FlowBroadcast, StepInput)
	c.add(29 * time.Minute)
	st, err := s.Get(1)
	require.NoError(t, err)
	require.True(t, s.Put(st))

	// Put продлевает сессию
	c.add(29 * time.Minute)
	_, err = s.Get(1)
	require.NoError(t, err)

	c.add(31 * time.Minute)
	st, err = s.Get(1)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, FlowBroadcast, st.Flow)

	_, err = s.Get(1)
	assert.ErrorIs(t, err, ErrNoSession)

	s.Start(2, FlowSetup, StepSourceType)
	c.add(time.Hour)
	_, replaced := s.Start(2, FlowSearch, StepSearchSource)
	assert.Nil(t, replaced)
}

func TestClearAndSweep(t *testing.T) {
	s, c := newTestStore(time.Minute)

	_, ok := s.Clear(1)
	assert.False(t, ok)

	s.Start(1, FlowSetup, StepSourceType)
	st, ok := s.Clear(1)
	assert.True(t, ok)
	assert.Equal(t, FlowSetup, st.Flow)

	s.Start(1, FlowRestore, StepConfirm)
	s.Start(2, FlowSearch, StepSearchMenu)
	c.add(2 * time.Minute)
	s.Start(3, FlowContact, StepInput)

	swept := s.Sweep()
	assert.Len(t, swept, 2)
	assert.Equal(t, 1, s.Len())
}

func TestConcurrentAccess(t *testing.T) {
	s, _ := newTestStore(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			st, _ := s.Start(id%5, FlowSearch, StepSearchMenu)
			st.Page = 2
			s.Put(st)
			_, _ = s.Get(id % 5)
		}(int64(i))
	}
	wg.Wait()
	assert.Equal(t, 5, s.Len())
}
