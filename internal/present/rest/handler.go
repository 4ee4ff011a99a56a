package rest

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/crowdvote/crowdvote"
	"github.com/crowdvote/crowdvote/internal/domain"
	"github.com/crowdvote/crowdvote/internal/present/rest/presenter"
	"github.com/crowdvote/crowdvote/internal/service"
	"github.com/crowdvote/crowdvote/internal/usecase"
)

type Handler struct {
	content *usecase.ContentUsecase
	vote    *usecase.VoteUsecase
	signal  *service.SignalService
}

func NewHandler(
	content *usecase.ContentUsecase,
	vote *usecase.VoteUsecase,
	signal *service.SignalService,
) *Handler {
	return &Handler{
		content: content,
		vote:    vote,
		signal:  signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/content", h.handleCreateContent)
	e.GET("/api/v1/content", h.handleListContent)
	e.GET("/api/v1/content/:id", h.handleGetContent)
	e.POST("/api/v1/content/:id/commit", h.handleCommitVote)
	e.POST("/api/v1/content/:id/reveal", h.handleRevealVote)
	e.GET("/api/v1/content/:id/commit", h.handleSavedCommit)
	e.GET("/realtime", h.handleRealtime)
}

func (h *Handler) handleCreateContent(c echo.Context) error {
	ctx := c.Request().Context()

	input := usecase.CreateContentInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		ContentType: c.FormValue("contentType"),
		Creator:     c.FormValue("creator"),
		Category:    c.FormValue("category"),
		Language:    c.FormValue("language"),
	}

	if tags := c.FormValue("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				input.Tags = append(input.Tags, trimmed)
			}
		}
	}

	if startStr := c.FormValue("votingStartTime"); startStr != "" {
		parsed, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid votingStartTime parameter")
		}
		input.VotingStartTime = parsed
	}

	if endStr := c.FormValue("votingEndTime"); endStr != "" {
		parsed, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid votingEndTime parameter")
		}
		input.VotingEndTime = parsed
	}

	if header, err := c.FormFile("file"); err == nil {
		file, err := header.Open()
		if err != nil {
			return presenter.BadRequest(c, err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return presenter.BadRequest(c, err)
		}
		input.File = data
		input.FileName = header.Filename
	}

	item, err := h.content.Create(ctx, input)
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.Created(c, item)
}

func (h *Handler) handleListContent(c echo.Context) error {
	ctx := c.Request().Context()

	var q domain.ListQuery

	if pageStr := c.QueryParam("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid page parameter")
		}
		q.Page = page
	}

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid limit parameter")
		}
		q.Limit = limit
	}

	q.SortBy = c.QueryParam("sortBy")
	q.SortOrder = c.QueryParam("sortOrder")
	q.Status = c.QueryParam("status")
	q.Creator = c.QueryParam("creator")
	q.ContentType = c.QueryParam("contentType")

	if tags := c.QueryParam("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				q.Tags = append(q.Tags, trimmed)
			}
		}
	}

	page, err := h.content.List(ctx, q)
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, page)
}

func (h *Handler) handleGetContent(c echo.Context) error {
	ctx := c.Request().Context()

	contentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid content id")
	}

	view, err := h.content.GetByID(ctx, contentID)
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, view)
}

type commitRequest struct {
	Vote            crowdvote.VoteChoice `json:"vote"`
	Confidence      uint8                `json:"confidence"`
	TokenType       crowdvote.TokenType  `json:"tokenType"`
	TransactionHash string               `json:"transactionHash"`
	Voter           string               `json:"voter"`
	Salt            string               `json:"salt"`
}

func (h *Handler) handleCommitVote(c echo.Context) error {
	ctx := c.Request().Context()

	contentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid content id")
	}

	var req commitRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	receipt, err := h.vote.Commit(ctx, usecase.CommitVoteInput{
		ContentID:       contentID,
		Vote:            req.Vote,
		Confidence:      req.Confidence,
		TokenType:       req.TokenType,
		TransactionHash: req.TransactionHash,
		Voter:           req.Voter,
		Salt:            req.Salt,
	})
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, receipt)
}

type revealRequest struct {
	Vote       crowdvote.VoteChoice `json:"vote"`
	Confidence uint8                `json:"confidence"`
	Salt       string               `json:"salt"`
	Voter      string               `json:"voter"`
}

func (h *Handler) handleRevealVote(c echo.Context) error {
	ctx := c.Request().Context()

	contentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid content id")
	}

	var req revealRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	receipt, err := h.vote.Reveal(ctx, usecase.RevealVoteInput{
		ContentID:  contentID,
		Vote:       req.Vote,
		Confidence: req.Confidence,
		Salt:       req.Salt,
		Voter:      req.Voter,
	})
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, receipt)
}

func (h *Handler) handleSavedCommit(c echo.Context) error {
	ctx := c.Request().Context()

	contentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid content id")
	}

	voter := c.QueryParam("voter")
	if voter == "" {
		return presenter.BadRequestMessage(c, "voter parameter is required")
	}

	record, err := h.vote.SavedCommit(ctx, contentID, voter)
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, echo.Map{
		"commitment":      record.Commitment,
		"transactionHash": record.TransactionHash,
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	output := make(chan crowdvote.Event)

	go h.signal.Realtime(ctx, output)

	quit := make(chan struct{})

	go func() {
		for {
			_, _, err := ws.ReadMessage()
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				quit <- struct{}{}
				break
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
