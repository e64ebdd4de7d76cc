// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the map pipeline over HTTP for agents that call
// it as a tool.
package server

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jcodagnone/mapdeploy/pipeline"
	"github.com/jcodagnone/mapdeploy/publish"
	"github.com/jcodagnone/mapdeploy/utils/textutils"
)

const maxStemLen = 40

// Options configures a Server.
type Options struct {
	// Backend used when a request doesn't pick one.
	Backend string

	// Defaults for the initial view.
	Zoom, Width, Height int

	// Publish holds defaults merged under each request's options.
	Publish publish.Options

	// WorkDir holds the transient documents, os.TempDir when empty.
	WorkDir string
}

// Server serves POST /api/maps.
type Server struct {
	coordinator *pipeline.Coordinator
	opts        Options

	// runs are serialized: the geocoder's rate limit is per process.
	mu sync.Mutex
}

// New creates a server on top of a coordinator.
func New(coordinator *pipeline.Coordinator, opts Options) *Server {
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}

	return &Server{coordinator: coordinator, opts: opts}
}

// CreateMapRequest is the body of POST /api/maps.
type CreateMapRequest struct {
	Addresses string `json:"addresses" binding:"required"`
	Backend   string `json:"backend"`
	Zoom      int    `json:"zoom"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	FileName  string `json:"file_name"`
	SiteName  string `json:"site_name"`
	Path      string `json:"path"`
	FolderID  string `json:"folder_id"`
	Role      string `json:"role"`
}

// CreateMapResponse wraps the pipeline report.
type CreateMapResponse struct {
	RunID string `json:"run_id"`
	*pipeline.Report
	Markdown string `json:"markdown"`
}

// Handler builds the gin engine.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", s.healthz)
	r.POST("/api/maps", s.createMap)

	return r
}

// Run listens on addr until the process exits.
func (s *Server) Run(addr string) error {
	log.Printf("🌐 Listening on %s", addr)

	return s.Handler().Run(addr)
}

func (s *Server) healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) createMap(ctx *gin.Context) {
	var req CreateMapRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	runID := uuid.NewString()

	preq := pipeline.Request{
		Addresses: req.Addresses,
		Backend:   firstNonEmpty(req.Backend, s.opts.Backend),
		Zoom:      firstPositive(req.Zoom, s.opts.Zoom),
		Width:     firstPositive(req.Width, s.opts.Width),
		Height:    firstPositive(req.Height, s.opts.Height),
		FileName:  s.fileName(req.FileName, runID),
		Publish: publish.Options{
			Name:     req.FileName,
			SiteName: req.SiteName,
			Path:     req.Path,
			FolderID: firstNonEmpty(req.FolderID, s.opts.Publish.FolderID),
			Role:     firstNonEmpty(req.Role, s.opts.Publish.Role),
		},
	}

	log.Printf("[%s] map requested on %s", runID, preq.Backend)

	s.mu.Lock()
	rep := s.coordinator.CreateAndPublish(ctx.Request.Context(), preq)
	s.mu.Unlock()

	ctx.JSON(statusFor(rep.Kind), CreateMapResponse{
		RunID:    runID,
		Report:   rep,
		Markdown: rep.Markdown(),
	})
}

// fileName gives every run its own local document.
func (s *Server) fileName(requested, runID string) string {
	stem := strings.TrimSuffix(filepath.Base(requested), filepath.Ext(requested))

	stem = textutils.Slug(stem, maxStemLen)
	if stem == "" {
		stem = strings.TrimSuffix(pipeline.DefaultFileName, filepath.Ext(pipeline.DefaultFileName))
	}

	return filepath.Join(s.opts.WorkDir, stem+"-"+runID+".html")
}

func statusFor(kind pipeline.ReportKind) int {
	switch kind {
	case pipeline.ReportOK:
		return http.StatusOK
	case pipeline.ReportNoValidAddresses:
		return http.StatusUnprocessableEntity
	case pipeline.ReportPublishFailed:
		return http.StatusBadGateway
	case pipeline.ReportInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}

	return b
}

func firstPositive(a, b int) int {
	if a > 0 {
		return a
	}

	return b
}
