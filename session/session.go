package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"tg_archive_bot/database"
	"tg_archive_bot/search"
)

var (
	ErrNoSession = errors.New("session: no active session")
	ErrExpired   = errors.New("session: expired")
)

type Flow string

const (
	FlowSetup         Flow = "setup"
	FlowEditSource    Flow = "edit_source"
	FlowSearch        Flow = "search"
	FlowAddAdmin      Flow = "add_admin"
	FlowBroadcast     Flow = "broadcast"
	FlowAdminChat     Flow = "admin_chat"
	FlowBackupChannel Flow = "backup_channel"
	FlowRestore       Flow = "restore"
	FlowContact       Flow = "contact"
)

type Step string

const (
	StepSourceType   Step = "source_type"
	StepSourceLink   Step = "source_link"
	StepTitle        Step = "title"
	StepTopics       Step = "topics"
	StepFilters      Step = "filters"
	StepKeywords     Step = "keywords"
	StepSearchSource Step = "search_source"
	StepSearchMenu   Step = "search_menu"
	StepSearchText   Step = "search_text"
	StepSearchDate   Step = "search_date"
	StepSearchSender Step = "search_sender"
	StepSearchTopic  Step = "search_topic"
	StepResults      Step = "results"
	StepInput        Step = "input"
	StepConfirm      Step = "confirm"
)

// State: состояние многошагового диалога одного пользователя
type State struct {
	ID        uuid.UUID
	UserID    int64
	Flow      Flow
	Step      Step
	StartedAt time.Time
	UpdatedAt time.Time

	// Мастер источника: черновик, при редактировании EditingID != 0
	Draft     *database.Source
	EditingID int64

	SearchSourceID int64
	Filters        search.Filters
	Result         *search.Result
	Page           int

	// Текст рассылки или сообщения админу
	Payload string
	// Загруженный файл для восстановления
	FilePath string
}

func (s State) Label() string {
	if s.Flow == "" {
		return "none"
	}
	return string(s.Flow)
}

// Store хранит состояния в памяти, неактивные дольше ttl удаляются при обращении
type Store struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	states map[int64]*State
}

func New(ttl time.Duration) *Store {
	return &Store{
		ttl:    ttl,
		now:    time.Now,
		states: make(map[int64]*State),
	}
}

// Start начинает новый диалог и возвращает заменённый, если он был активен
func (s *Store) Start(userID int64, flow Flow, step Step) (State, *State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var replaced *State
	if old, ok := s.states[userID]; ok && !s.expired(old, now) {
		cp := *old
		replaced = &cp
	}

	st := &State{
		ID:        uuid.New(),
		UserID:    userID,
		Flow:      flow,
		Step:      step,
		StartedAt: now,
		UpdatedAt: now,
	}
	s.states[userID] = st
	return *st, replaced
}

// Get возвращает копию состояния; изменения сохраняются через Put
func (s *Store) Get(userID int64) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[userID]
	if !ok {
		return State{}, ErrNoSession
	}
	if s.expired(st, s.now()) {
		delete(s.states, userID)
		return *st, ErrExpired
	}
	return *st, nil
}

// Put сохраняет состояние, если оно всё ещё текущее для пользователя
func (s *Store) Put(st State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.states[st.UserID]
	if !ok || cur.ID != st.ID {
		return false
	}
	st.UpdatedAt = s.now()
	*cur = st
	return true
}

func (s *Store) Clear(userID int64) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[userID]
	if !ok {
		return State{}, false
	}
	delete(s.states, userID)
	return *st, !s.expired(st, s.now())
}

// Sweep удаляет все просроченные состояния и возвращает их
func (s *Store) Sweep() []State {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var out []State
	for id, st := range s.states {
		if s.expired(st, now) {
			out = append(out, *st)
			delete(s.states, id)
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

func (s *Store) expired(st *State, now time.Time) bool {
	return s.ttl > 0 && now.Sub(st.UpdatedAt) > s.ttl
}
