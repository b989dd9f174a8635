package memstore

import (
	"context"
	"strings"
	"sort"
	"time"

	"github.com/avakara/ewaste-platform/internal/model"
)

type communityRepo struct {
	s *Store
}

func (r communityRepo) Create(ctx context.Context, event *model.CommunityEvent) error {
	return r.s.read(func(st *state) error {
		st.events[event.ID] = cloneEvent(event)
		return nil
	})
}

func (r communityRepo) ListUpcoming(ctx context.Context, now time.Time) ([]model.CommunityEvent, error) {
	var out []model.CommunityEvent
	err := r.s.read(func(st *state) error {
		for _, event := range st.events {
			if !event.EndDate.Before(now) {
				out = append(out, *cloneEvent(event))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, err
}

func (r communityRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	err := r.s.read(func(st *state) error {
		for id, event := range st.events {
			if event.EndDate.Before(now) {
				delete(st.events, id)
				removed++
			}
		}
		return nil
	})
	return removed, err
}

type jobRepo struct {
	s *Store
}

func (r jobRepo) Claim(ctx context.Context, name, period string, at time.Time) (bool, error) {
	claimed := false
	err := r.s.read(func(st *state) error {
		key := name + "/" + period
		if _, ok := st.jobs[key]; ok {
			return nil
		}
		st.jobs[key] = at
		claimed = true
		return nil
	})
	return claimed, err
}

func (r jobRepo) HasRun(ctx context.Context, name string) (bool, error) {
	found := false
	err := r.s.read(func(st *state) error {
		for key := range st.jobs {
			if strings.HasPrefix(key, name+"/") {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}
