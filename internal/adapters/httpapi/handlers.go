package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ghalamif/AegisInsight/internal/app/pipeline"
	"github.com/ghalamif/AegisInsight/internal/domain"
	"github.com/ghalamif/AegisInsight/internal/ports"
)

type queryRequest struct {
	Query        string     `json:"query"`
	Now          *time.Time `json:"now,omitempty"`
	Equipment    string     `json:"equipment,omitempty"`
	AnalysisType string     `json:"analysis_type,omitempty"`
}

type classifyResponse struct {
	Query        string              `json:"query"`
	AnalysisType domain.AnalysisType `json:"analysis_type"`
	RoutingScore int                 `json:"routing_score"`
	Tier         domain.Tier         `json:"tier"`
	TopN         int                 `json:"top_n,omitempty"`
	Hits         []string            `json:"hits,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	at := domain.AnalysisType(req.AnalysisType)
	if at != "" && !at.Analytical() {
		respondError(w, http.StatusBadRequest, fmt.Errorf("unknown analysis_type %q", req.AnalysisType))
		return
	}

	preq := pipeline.Request{Query: req.Query, Now: s.clock(), AnalysisType: at}
	if req.Now != nil {
		preq.Now = *req.Now
	}
	if req.Equipment != "" {
		preq.Scope = ports.SingleEquipment(req.Equipment)
	}

	res := s.pipe.Handle(r.Context(), preq)
	s.log.Debug("query answered",
		zap.String("analysis_type", string(res.AnalysisType)),
		zap.String("tier", string(res.Tier)),
		zap.Duration("execution_time", res.ExecutionTime),
	)
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		respondError(w, http.StatusBadRequest, errors.New("q is required"))
		return
	}
	c, tier := s.pipe.Classify(q)
	respondJSON(w, http.StatusOK, classifyResponse{
		Query:        q,
		AnalysisType: c.AnalysisType,
		RoutingScore: c.RoutingScore,
		Tier:         tier,
		TopN:         c.TopN,
		Hits:         c.Hits,
	})
}

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	respondJSON(w, status, map[string]any{"error": err.Error()})
}
