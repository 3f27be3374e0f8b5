package testutil

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/baharkarakas/market-backend/internal/models"
	repo "github.com/baharkarakas/market-backend/internal/repository"
)

type botsMem Store

func (m *botsMem) s() *Store { return (*Store)(m) }

func (m *botsMem) Create(_ context.Context, b models.Bot) (models.Bot, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Bot{}, err
	}
	defer s.unlock()
	if b.Settings == nil {
		b.Settings = json.RawMessage(`{}`)
	}
	b.ID = s.next()
	b.CreatedAt, b.UpdatedAt = time.Now(), time.Now()
	s.bots[b.ID] = &b
	return b, nil
}

func (m *botsMem) Get(_ context.Context, id int64) (models.Bot, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Bot{}, err
	}
	defer s.unlock()
	b, ok := s.bots[id]
	if !ok {
		return models.Bot{}, repo.ErrNotFound
	}
	return *b, nil
}

func (m *botsMem) ListByUser(_ context.Context, userID int64) ([]models.Bot, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.Bot{}
	for _, b := range s.bots {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *botsMem) AddNode(_ context.Context, n models.BotNode) (models.BotNode, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.BotNode{}, err
	}
	defer s.unlock()
	if _, ok := s.bots[n.BotID]; !ok {
		return models.BotNode{}, repo.ErrNotFound
	}
	n.ID, n.CreatedAt = s.next(), time.Now()
	s.botNodes = append(s.botNodes, n)
	return n, nil
}

func (m *botsMem) ListNodes(_ context.Context, botID int64) ([]models.BotNode, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.BotNode{}
	for _, n := range s.botNodes {
		if n.BotID == botID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *botsMem) AddConnection(_ context.Context, c models.BotConnection) (models.BotConnection, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.BotConnection{}, err
	}
	defer s.unlock()
	found := 0
	for _, n := range s.botNodes {
		if n.BotID == c.BotID && (n.ID == c.SourceNodeID || n.ID == c.TargetNodeID) {
			found++
		}
	}
	if found < 2 {
		return models.BotConnection{}, repo.ErrNotFound
	}
	c.ID, c.CreatedAt = s.next(), time.Now()
	s.botConns = append(s.botConns, c)
	return c, nil
}

func (m *botsMem) ListConnections(_ context.Context, botID int64) ([]models.BotConnection, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.BotConnection{}
	for _, c := range s.botConns {
		if c.BotID == botID {
			out = append(out, c)
		}
	}
	return out, nil
}

type blocksMem Store

func (m *blocksMem) s() *Store { return (*Store)(m) }

func (m *blocksMem) Create(_ context.Context, b models.Block) (models.Block, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Block{}, err
	}
	defer s.unlock()
	b.ID = s.next()
	b.CreatedAt, b.UpdatedAt = time.Now(), time.Now()
	s.blocks[b.ID] = &b
	return b, nil
}

func (m *blocksMem) ListByPage(_ context.Context, pageID int64) ([]models.Block, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.Block{}
	for _, b := range s.blocks {
		if b.PageID == pageID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *blocksMem) Update(_ context.Context, id int64, u models.BlockUpdate) (models.Block, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Block{}, err
	}
	defer s.unlock()
	b, ok := s.blocks[id]
	if !ok {
		return models.Block{}, repo.ErrNotFound
	}
	if u.Content != nil {
		b.Content = u.Content
	}
	if u.Styles != nil {
		b.Styles = u.Styles
	}
	if u.Position != nil {
		b.Position = *u.Position
	}
	b.UpdatedAt = time.Now()
	return *b, nil
}

func (m *blocksMem) Delete(_ context.Context, id int64) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	if _, ok := s.blocks[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.blocks, id)
	return nil
}
