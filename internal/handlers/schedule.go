package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evn/attendance_backendl/internal/models"
	"github.com/evn/attendance_backendl/internal/pkg/response"
	"github.com/evn/attendance_backendl/internal/schedule"
	"github.com/evn/attendance_backendl/internal/scheduler"
)

type ScheduleHandler struct {
	resolver *schedule.Resolver
	jobs     *scheduler.Scheduler
}

func NewScheduleHandler(resolver *schedule.Resolver, jobs *scheduler.Scheduler) *ScheduleHandler {
	return &ScheduleHandler{resolver: resolver, jobs: jobs}
}

func (h *ScheduleHandler) GetGlobal(w http.ResponseWriter, r *http.Request) {
	g, err := h.resolver.Global(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, g)
}

type globalRequest struct {
	Start         string `json:"start"`
	End           string `json:"end"`
	MarginMinutes int    `json:"margin_minutes"`
	AlertMinutes  int    `json:"alert_minutes"`
}

// UpdateGlobal saves the new configuration and re-arms every enforcement
// job so the daily logout fires at the new instant.
func (h *ScheduleHandler) UpdateGlobal(w http.ResponseWriter, r *http.Request) {
	var req globalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	start, err := models.ParseLocalTime(req.Start)
	if err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid start time")
		return
	}
	end, err := models.ParseLocalTime(req.End)
	if err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid end time")
		return
	}
	g := &models.GlobalSchedule{
		Start:         start,
		End:           end,
		MarginMinutes: req.MarginMinutes,
		AlertMinutes:  req.AlertMinutes,
	}
	if err := h.resolver.UpdateGlobal(r.Context(), g); err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.jobs.RearmAll(r.Context()); err != nil {
		log.Printf("[schedule] rearm jobs after global update: %v", err)
	}
	response.RespondWithJSON(w, http.StatusOK, g)
}

func (h *ScheduleHandler) GetWeekly(w http.ResponseWriter, r *http.Request) {
	ws, err := h.resolver.Weekly(r.Context(), chi.URLParam(r, "staffID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, weeklyToWire(ws))
}

type dayShiftWire struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

var wireDays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

func weeklyToWire(ws models.WeeklySchedule) map[string]*dayShiftWire {
	out := make(map[string]*dayShiftWire, len(wireDays))
	for name, day := range wireDays {
		if shift := ws.On(day); shift != nil {
			out[name] = &dayShiftWire{Start: shift.Start.String(), End: shift.End.String()}
		} else {
			out[name] = nil
		}
	}
	return out
}

// SetWeekly replaces the staff member's weekly profile. A day is either a
// start/end pair or null for a day off.
func (h *ScheduleHandler) SetWeekly(w http.ResponseWriter, r *http.Request) {
	var body map[string]*dayShiftWire
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ws := models.WeeklySchedule{}
	for name, wire := range body {
		day, ok := wireDays[name]
		if !ok {
			response.RespondWithError(w, http.StatusBadRequest, "Unknown weekday "+name)
			return
		}
		if wire == nil {
			continue
		}
		start, err := models.ParseLocalTime(wire.Start)
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Invalid start time for "+name)
			return
		}
		end, err := models.ParseLocalTime(wire.End)
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Invalid end time for "+name)
			return
		}
		shift, err := models.NewDayShift(start, end)
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, name+": "+err.Error())
			return
		}
		ws[day] = shift
	}
	if err := h.resolver.SetWeekly(r.Context(), chi.URLParam(r, "staffID"), ws); err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, weeklyToWire(ws))
}
