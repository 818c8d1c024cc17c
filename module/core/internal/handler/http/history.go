package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/proximity/module/core/domain"
)

type historyService interface {
	OnScanEventDetected(ctx context.Context, event *domain.ScanEvent) error
	Pending(ctx context.Context) (*domain.HistoryBatch, error)
	PublishHistory(ctx context.Context) error
}

type geofenceStatus interface {
	IsRegistered() bool
}

type listenerCounter interface {
	Listeners() int
}

type scanRequest struct {
	BeaconID  string `json:"beacon_id"`
	EventMask int    `json:"event_mask"`
	EventTime int64  `json:"event_time"`
}

type scanResponse struct {
	ID        string `json:"id"`
	BeaconID  string `json:"beacon_id"`
	EventMask int    `json:"event_mask"`
	EventTime int64  `json:"event_time"`
	CreatedAt int64  `json:"created_at"`
}

type actionResponse struct {
	ID               string `json:"id"`
	ActionID         string `json:"action_id"`
	BeaconID         string `json:"beacon_id"`
	Trigger          int    `json:"trigger"`
	PresentationTime int64  `json:"presentation_time"`
	CreatedAt        int64  `json:"created_at"`
}

type pendingResponse struct {
	Scans   []scanResponse   `json:"scans"`
	Actions []actionResponse `json:"actions"`
}

type HistoryHandler struct {
	historySvc historyService
	manager    geofenceStatus
	receiver   listenerCounter
}

func NewHistoryHandler(historySvc historyService, manager geofenceStatus, receiver listenerCounter) *HistoryHandler {
	return &HistoryHandler{historySvc: historySvc, manager: manager, receiver: receiver}
}

func (h *HistoryHandler) Register(r *gin.RouterGroup) {
	r.POST("/scans", h.RecordScan)
	r.GET("/history/pending", h.GetPending)
	r.POST("/history/publish", h.PublishHistory)
	r.GET("/geofence/status", h.GetGeofenceStatus)
}

func (h *HistoryHandler) RecordScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := validateScanRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event := &domain.ScanEvent{
		BeaconID:  req.BeaconID,
		EventMask: domain.ScanEventType(req.EventMask),
		EventTime: time.UnixMilli(req.EventTime),
	}
	if err := h.historySvc.OnScanEventDetected(c.Request.Context(), event); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record scan"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "recorded"})
}

func (h *HistoryHandler) GetPending(c *gin.Context) {
	batch, err := h.historySvc.Pending(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}
	c.JSON(http.StatusOK, toPendingResponse(batch))
}

func (h *HistoryHandler) PublishHistory(c *gin.Context) {
	if err := h.historySvc.PublishHistory(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to publish history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "published"})
}

func (h *HistoryHandler) GetGeofenceStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"registered": h.manager.IsRegistered(),
		"listeners":  h.receiver.Listeners(),
	})
}

func validateScanRequest(req *scanRequest) error {
	if req.BeaconID == "" {
		return fmt.Errorf("beacon_id: required")
	}
	if req.EventMask <= 0 || req.EventMask > int(domain.ScanEventEntryExit) {
		return fmt.Errorf("event_mask: must be 1 (entry), 2 (exit) or 3")
	}
	if req.EventTime <= 0 {
		return fmt.Errorf("event_time: must be positive")
	}
	return nil
}

func toPendingResponse(batch *domain.HistoryBatch) pendingResponse {
	resp := pendingResponse{
		Scans:   make([]scanResponse, len(batch.Scans)),
		Actions: make([]actionResponse, len(batch.Actions)),
	}
	for i, s := range batch.Scans {
		resp.Scans[i] = scanResponse{
			ID:        s.ID,
			BeaconID:  s.BeaconID,
			EventMask: int(s.EventMask),
			EventTime: s.EventTime.UnixMilli(),
			CreatedAt: s.CreatedAt.UnixMilli(),
		}
	}
	for i, a := range batch.Actions {
		resp.Actions[i] = actionResponse{
			ID:               a.ID,
			ActionID:         a.ActionID,
			BeaconID:         a.BeaconID,
			Trigger:          int(a.Trigger),
			PresentationTime: a.PresentationTime.UnixMilli(),
			CreatedAt:        a.CreatedAt.UnixMilli(),
		}
	}
	return resp
}
