package services

import (
	"context"
	"strings"

	"github.com/baharkarakas/market-backend/internal/models"
	repo "github.com/baharkarakas/market-backend/internal/repository"
)

// BotService manages bot flows: the bot, its nodes and the edges between them.
type BotService struct {
	bots repo.Bots
}

func NewBotService(b repo.Bots) *BotService { return &BotService{bots: b} }

func (s *BotService) Create(ctx context.Context, b models.Bot) (models.Bot, error) {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return models.Bot{}, Fail(ErrBadRequest, "name is required")
	}
	if b.Platform == "" {
		b.Platform = "telegram"
	}
	return s.bots.Create(ctx, b)
}

func (s *BotService) Get(ctx context.Context, id int64) (models.Bot, error) {
	b, err := s.bots.Get(ctx, id)
	return b, notFound(err, "Bot not found")
}

func (s *BotService) ListByUser(ctx context.Context, userID int64) ([]models.Bot, error) {
	return s.bots.ListByUser(ctx, userID)
}

func (s *BotService) owned(ctx context.Context, userID, botID int64) error {
	b, err := s.Get(ctx, botID)
	if err != nil {
		return err
	}
	if b.UserID != userID {
		return Fail(ErrForbidden, "Not your bot")
	}
	return nil
}

func (s *BotService) AddNode(ctx context.Context, userID int64, n models.BotNode) (models.BotNode, error) {
	if n.NodeType == "" {
		return models.BotNode{}, Fail(ErrBadRequest, "node_type is required")
	}
	if err := s.owned(ctx, userID, n.BotID); err != nil {
		return models.BotNode{}, err
	}
	return s.bots.AddNode(ctx, n)
}

func (s *BotService) Nodes(ctx context.Context, botID int64) ([]models.BotNode, error) {
	return s.bots.ListNodes(ctx, botID)
}

func (s *BotService) Connect(ctx context.Context, userID int64, c models.BotConnection) (models.BotConnection, error) {
	if c.SourceNodeID == 0 || c.TargetNodeID == 0 {
		return models.BotConnection{}, Fail(ErrBadRequest, "source_node_id and target_node_id are required")
	}
	if c.SourceNodeID == c.TargetNodeID {
		return models.BotConnection{}, Fail(ErrBadRequest, "a node cannot connect to itself")
	}
	if err := s.owned(ctx, userID, c.BotID); err != nil {
		return models.BotConnection{}, err
	}
	out, err := s.bots.AddConnection(ctx, c)
	return out, notFound(err, "Both nodes must belong to the bot")
}

func (s *BotService) Connections(ctx context.Context, botID int64) ([]models.BotConnection, error) {
	return s.bots.ListConnections(ctx, botID)
}

// BlockService manages page builder blocks.
type BlockService struct {
	blocks repo.Blocks
}

func NewBlockService(b repo.Blocks) *BlockService { return &BlockService{blocks: b} }

func (s *BlockService) Create(ctx context.Context, b models.Block) (models.Block, error) {
	if b.PageID == 0 || strings.TrimSpace(b.Type) == "" {
		return models.Block{}, Fail(ErrBadRequest, "page_id and type are required")
	}
	return s.blocks.Create(ctx, b)
}

func (s *BlockService) ListByPage(ctx context.Context, pageID int64) ([]models.Block, error) {
	if pageID == 0 {
		return nil, Fail(ErrBadRequest, "page_id is required")
	}
	return s.blocks.ListByPage(ctx, pageID)
}

func (s *BlockService) Update(ctx context.Context, id int64, u models.BlockUpdate) (models.Block, error) {
	if id == 0 {
		return models.Block{}, Fail(ErrBadRequest, "block_id is required")
	}
	if u.Empty() {
		return models.Block{}, Fail(ErrBadRequest, "No fields to update")
	}
	b, err := s.blocks.Update(ctx, id, u)
	return b, notFound(err, "Block not found")
}

func (s *BlockService) Delete(ctx context.Context, id int64) error {
	return notFound(s.blocks.Delete(ctx, id), "Block not found")
}
