package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dailypractice/attendance-hub/internal/application/query"
	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
	"github.com/dailypractice/attendance-hub/internal/domain/shared"
	"github.com/dailypractice/attendance-hub/pkg/logger"
	"github.com/dailypractice/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
		return
	}
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSONError(w, http.StatusServiceUnavailable, "not_ready", status.Message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"alive": true})
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN API
// ══════════════════════════════════════════════════════════════════════════════

// MemberDTO is a roster entry.
type MemberDTO struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// StatusDTO is today's split.
type StatusDTO struct {
	Date     string      `json:"date"`
	Done     []MemberDTO `json:"done"`
	Pending  []MemberDTO `json:"pending"`
	Unlisted int         `json:"unlisted"`
}

// MissDTO lists one member's missed dates.
type MissDTO struct {
	Member MemberDTO `json:"member"`
	Dates  []string  `json:"dates"`
	Count  int       `json:"count"`
}

// StatsDTO mirrors attendance.Report.
type StatsDTO struct {
	Month             string         `json:"month,omitempty"`
	Days              int            `json:"days,omitempty"`
	Dates             []string       `json:"dates"`
	TotalMembers      int            `json:"total_members"`
	PerDateCounts     map[string]int `json:"per_date_counts"`
	Average           string         `json:"average"`
	NoData            bool           `json:"no_data"`
	FullAttendance    []MemberDTO    `json:"full_attendance"`
	AnyAttendance     []MemberDTO    `json:"any_attendance"`
	NeverAttended     []MemberDTO    `json:"never_attended"`
	NotFullAttendance []MemberDTO    `json:"not_full_attendance"`
	Missed            []MissDTO      `json:"missed"`
}

func (s *Server) handleChatStatus(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Queries.TodayStatus(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusDTO{
		Date:     res.Date,
		Done:     toMemberDTOs(res.Done),
		Pending:  toMemberDTOs(res.Pending),
		Unlisted: res.Unlisted,
	})
}

func (s *Server) handleChatRoster(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Queries.Roster(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTOs(res.Members))
}

// handleChatStats accepts ?days=N or ?month=YYYY-MM.
func (s *Server) handleChatStats(w http.ResponseWriter, r *http.Request) {
	q := query.StatsQuery{ChatID: chi.URLParam(r, "chatID")}

	if month := r.URL.Query().Get("month"); month != "" {
		y, m, ok := timeutil.ParseMonth(month)
		if !ok {
			writeJSONError(w, http.StatusBadRequest, "invalid_month", "month must be YYYY-MM")
			return
		}
		q.Year, q.Month = y, m
	} else if days := r.URL.Query().Get("days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid_days", "days must be a positive integer")
			return
		}
		q.Days = n
	}

	res, err := s.deps.Queries.Stats(r.Context(), q)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	rep := res.Report
	dto := StatsDTO{
		Month:             res.Month,
		Days:              res.Days,
		Dates:             rep.Dates,
		TotalMembers:      rep.TotalMembers,
		PerDateCounts:     make(map[string]int, len(rep.PerDateCounts)),
		Average:           rep.AverageString(),
		NoData:            rep.NoData,
		FullAttendance:    toMemberDTOs(rep.FullAttendance),
		AnyAttendance:     toMemberDTOs(rep.AnyAttendance),
		NeverAttended:     toMemberDTOs(rep.NeverAttended),
		NotFullAttendance: toMemberDTOs(rep.NotFullAttendance),
		Missed:            make([]MissDTO, 0, len(rep.Missed)),
	}
	for _, dc := range rep.PerDateCounts {
		dto.PerDateCounts[dc.Date] = dc.Count
	}
	for _, mm := range rep.Missed {
		dto.Missed = append(dto.Missed, MissDTO{
			Member: MemberDTO{ID: mm.Member.ID, DisplayName: mm.Member.Label()},
			Dates:  mm.Dates,
			Count:  mm.Count(),
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidChatID), shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, shared.ErrStoreUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, "store_unavailable", "attendance store is not configured")
	default:
		s.logger.Error("admin query failed", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "query failed")
	}
}

func toMemberDTOs(members []attendance.Member) []MemberDTO {
	out := make([]MemberDTO, 0, len(members))
	for _, m := range members {
		out = append(out, MemberDTO{ID: m.ID, DisplayName: m.Label()})
	}
	return out
}
