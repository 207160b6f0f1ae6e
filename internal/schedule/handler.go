//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=schedule_test

package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/lgrbic/progressor/internal/catalog"
	"github.com/lgrbic/progressor/internal/progression"
	"github.com/lgrbic/progressor/internal/telemetry/tracing"
	"github.com/lgrbic/progressor/pkg"
)

type scheduleService interface {
	Workouts(ctx context.Context, programID string) ([]progression.WorkoutRow, error)
	Workout(ctx context.Context, programID string, workoutIndex int) (*progression.WorkoutRow, error)
	Config(ctx context.Context, programID string) (progression.Config, error)
	PutConfig(ctx context.Context, programID string, cfg progression.Config) error
	SetConfigValue(ctx context.Context, programID, key, value string) error
	RecordResult(ctx context.Context, programID string, workoutIndex int, slotID string, res progression.SlotResult) error
	ClearResult(ctx context.Context, programID string, workoutIndex int, slotID string) error
	Progress(ctx context.Context, programID string) (*ProgramProgress, error)
}

// ProgramSummary is the list view of a program definition.
type ProgramSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Version       int    `json:"version,omitempty"`
	Category      string `json:"category,omitempty"`
	CycleLength   int    `json:"cycleLength"`
	TotalWorkouts int    `json:"totalWorkouts"`
	Days          int    `json:"days"`
}

type ListProgramsResponse struct {
	Programs []ProgramSummary `json:"programs"`
	Total    int              `json:"total"`
}

type WorkoutsResponse struct {
	Workouts []progression.WorkoutRow `json:"workouts"`
	Total    int                      `json:"total"`
}

type PutConfigResponse struct {
	ProgramID string `json:"programId"`
	Size      int    `json:"size"`
}

type RecordResultResponse struct {
	ProgramID    string `json:"programId"`
	WorkoutIndex int    `json:"workoutIndex"`
	SlotID       string `json:"slotId"`
}

type setConfigValueRequest struct {
	Value string `json:"value"`
}

type Handler struct {
	catalog  programCatalog
	service  scheduleService
	analyzer *Analyzer
}

func NewHandler(programs programCatalog, service scheduleService) *Handler {
	return &Handler{
		catalog:  programs,
		service:  service,
		analyzer: NewAnalyzer(programs, service),
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/programs", handler.HandleListPrograms).Methods("GET", "OPTIONS").Name("list-programs")
	router.HandleFunc("/programs/{id}", handler.HandleGetProgram).Methods("GET", "OPTIONS").Name("get-program")
	router.HandleFunc("/programs/{id}/progress", handler.HandleProgress).Methods("GET", "OPTIONS").Name("program-progress")
	router.HandleFunc("/programs/{id}/workouts", handler.HandleWorkouts).Methods("GET", "OPTIONS").Name("program-workouts")
	router.HandleFunc("/programs/{id}/workouts/{index}", handler.HandleWorkout).Methods("GET", "OPTIONS").Name("program-workout")
	router.HandleFunc("/programs/{id}/config", handler.HandleGetConfig).Methods("GET", "OPTIONS").Name("get-program-config")
	router.HandleFunc("/programs/{id}/config", handler.HandlePutConfig).Methods("PUT", "OPTIONS").Name("put-program-config")
	router.HandleFunc("/programs/{id}/config/{key}", handler.HandleSetConfigValue).Methods("PUT", "OPTIONS").Name("set-program-config-value")
	router.HandleFunc("/programs/{id}/workouts/{index}/results/{slotId}", handler.HandleRecordResult).Methods("PUT", "OPTIONS").Name("record-result")
	router.HandleFunc("/programs/{id}/workouts/{index}/results/{slotId}", handler.HandleClearResult).Methods("DELETE", "OPTIONS").Name("clear-result")
	router.HandleFunc("/programs/{id}/exercises/{exerciseId}/history", handler.HandleExerciseHistory).Methods("GET", "OPTIONS").Name("exercise-history")
	router.HandleFunc("/programs/{id}/stats/tiers", handler.HandleTierBreakdown).Methods("GET", "OPTIONS").Name("tier-breakdown")
}

func (handler *Handler) HandleListPrograms(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.list")
	defer span.End()

	defs := handler.catalog.All()
	summaries := make([]ProgramSummary, 0, len(defs))
	for _, def := range defs {
		summaries = append(summaries, ProgramSummary{
			ID:            def.ID,
			Name:          def.Name,
			Version:       def.Version,
			Category:      def.Category,
			CycleLength:   def.CycleLength,
			TotalWorkouts: def.TotalWorkouts,
			Days:          len(def.Days),
		})
	}

	listJson, err := json.Marshal(ListProgramsResponse{
		Programs: summaries,
		Total:    len(summaries),
	})
	if err != nil {
		log.Errorf("marshal programs list error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, listJson, http.StatusOK)
}

func (handler *Handler) HandleGetProgram(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.get")
	defer span.End()

	vars := mux.Vars(r)
	programID := vars["id"]
	if programID == "" {
		http.Error(w, "error, program id empty", http.StatusBadRequest)
		return
	}

	def, err := handler.catalog.Get(programID)
	if err != nil {
		if errors.Is(err, catalog.ErrProgramNotFound) {
			http.Error(w, "program not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get program %s: %s", programID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	defJson, err := json.Marshal(def)
	if err != nil {
		log.Errorf("failed to marshal program %s: %s", programID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, defJson, http.StatusOK)
}

func (handler *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.progress")
	defer span.End()

	vars := mux.Vars(r)
	programID := vars["id"]
	if programID == "" {
		http.Error(w, "error, program id empty", http.StatusBadRequest)
		return
	}

	progress, err := handler.service.Progress(ctx, programID)
	if err != nil {
		if errors.Is(err, catalog.ErrProgramNotFound) {
			http.Error(w, "program not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get progress for program %s: %s", programID, err)
		http.Error(w, "failed to get program progress", http.StatusInternalServerError)
		return
	}

	progressJson, err := json.Marshal(progress)
	if err != nil {
		log.Errorf("failed to marshal progress: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, progressJson, http.StatusOK)
}

func (handler *Handler) HandleWorkouts(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.workouts")
	defer span.End()

	vars := mux.Vars(r)
	programID := vars["id"]
	if programID == "" {
		http.Error(w, "error, program id empty", http.StatusBadRequest)
		return
	}

	workouts, err := handler.service.Workouts(ctx, programID)
	if err != nil {
		if errors.Is(err, catalog.ErrProgramNotFound) {
			http.Error(w, "program not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get workouts for program %s: %s", programID, err)
		http.Error(w, "failed to get workouts", http.StatusInternalServerError)
		return
	}

	workoutsJson, err := json.Marshal(WorkoutsResponse{
		Workouts: workouts,
		Total:    len(workouts),
	})
	if err != nil {
		log.Errorf("marshal workouts error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, workoutsJson, http.StatusOK)
}

func (handler *Handler) HandleWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.workout")
	defer span.End()

	vars := mux.Vars(r)
	programID := vars["id"]
	if programID == "" {
		http.Error(w, "error, program id empty", http.StatusBadRequest)
		return
	}
	workoutIndex, err := strconv.Atoi(vars["index"])
	if err != nil {
		http.Error(w, "error, workout index NaN", http.StatusBadRequest)
		return
	}

	workout, err := handler.service.Workout(ctx, programID, workoutIndex)
	if err != nil {
		if errors.Is(err, catalog.ErrProgramNotFound) {
			http.Error(w, "program not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrWorkoutIndexOutOfRange) {
			http.Error(w, "workout index out of range", http.StatusBadRequest)
			return
		}
		log.Errorf("failed to get workout %d for program %s: %s", workoutIndex, programID, err)
		http.Error(w, "failed to get workout", http.StatusInternalServerError)
		return
	}

	workoutJson, err := json.Marshal(workout)
	if err != nil {
		log.Errorf("marshal workout error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, workoutJson, http.StatusOK)
}

func (handler *Handler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.config.get")
	defer span.End()

	vars := mux.Vars(r)
	programID := vars["id"]
	if programID == "" {
		http.Error(w, "error, program id empty", http.StatusBadRequest)
		return
	}

	cfg, err := handler.service.Config(ctx, programID)
	if err != nil {
		if errors.Is(err, catalog.ErrProgramNotFound) {
			http.Error(w, "program not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get config for program %s: %s", programID, err)
		http.Error(w, "failed to get config", http.StatusInternalServerError)
		return
	}

	cfgJson, err := json.Marshal(cfg)
	if err != nil {
		log.Errorf("marshal config error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cfgJson, http.StatusOK)
}

func (handler *Handler) HandlePutConfig(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.config.put")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	programID := vars["id"]
	if programID == "" {
		http.Error(w, "error, program id empty", http.StatusBadRequest)
		return
	}

	var cfg progression.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		log.Tracef("put config, unmarshal json params: %s", err)
		http.Error(w, "put config failed", http.StatusBadRequest)
		return
	}

	if err := handler.service.PutConfig(ctx, programID, cfg); err != nil {
		if errors.Is(err, catalog.ErrProgramNotFound) {
			http.Error(w, "program not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to put config for program %s: %s", programID, err)
		http.Error(w, "failed to put config", http.StatusInternalServerError)
		return
	}

	putRespJson, err := json.Marshal(PutConfigResponse{
		ProgramID: programID,
		Size:      len(cfg),
	})
	if err != nil {
		log.Errorf("failed to marshal put config response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf("config replaced for program %s: %d entries", programID, len(cfg))
	pkg.WriteJSONResponseOK(w, string(putRespJson))
}

func (handler *Handler) HandleSetConfigValue(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.config.set")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	programID := vars["id"]
	if programID == "" {
		http.Error(w, "error, program id empty", http.StatusBadRequest)
		return
	}
	key := vars["key"]
	if key == "" {
		http.Error(w, "error, config key empty", http.StatusBadRequest)
		return
	}

	var req setConfigValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("set config value, unmarshal json params: %s", err)
		http.Error(w, "set config value failed", http.StatusBadRequest)
		return
	}

	if err := handler.service.SetConfigValue(ctx, programID, key, req.Value); err != nil {
		if errors.Is(err, catalog.ErrProgramNotFound) {
			http.Error(w, "program not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrEmptyConfigKey) {
			http.Error(w, "error, config key empty", http.StatusBadRequest)
			return
		}
		log.Errorf("failed to set config value %s for program %s: %s", key, programID, err)
		http.Error(w, "failed to set config value", http.StatusInternalServerError)
		return
	}

	log.Debugf("config value set for program %s: %s", programID, key)
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"programId":%q,"key":%q}`, programID, key))
}

func (handler *Handler) HandleRecordResult(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.results.record")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	programID := vars["id"]
	if programID == "" {
		http.Error(w, "error, program id empty", http.StatusBadRequest)
		return
	}
	workoutIndex, err := strconv.Atoi(vars["index"])
	if err != nil {
		http.Error(w, "error, workout index NaN", http.StatusBadRequest)
		return
	}
	slotID := vars["slotId"]
	if slotID == "" {
		http.Error(w, "error, slot id empty", http.StatusBadRequest)
		return
	}

	var res progression.SlotResult
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		log.Tracef("record result, unmarshal json params: %s", err)
		http.Error(w, "record result failed", http.StatusBadRequest)
		return
	}

	if err := handler.service.RecordResult(ctx, programID, workoutIndex, slotID, res); err != nil {
		if errors.Is(err, catalog.ErrProgramNotFound) {
			http.Error(w, "program not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrWorkoutIndexOutOfRange) ||
			errors.Is(err, ErrUnknownSlot) ||
			errors.Is(err, ErrInvalidResult) {
			log.Tracef("record result for program %s rejected: %s", programID, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("failed to record result [%s] [%d] [%s]: %s", programID, workoutIndex, slotID, err)
		http.Error(w, "failed to record result", http.StatusInternalServerError)
		return
	}

	recordRespJson, err := json.Marshal(RecordResultResponse{
		ProgramID:    programID,
		WorkoutIndex: workoutIndex,
		SlotID:       slotID,
	})
	if err != nil {
		log.Errorf("failed to marshal record result response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf("result recorded: [%s] workout %d, slot %s", programID, workoutIndex, slotID)
	pkg.WriteJSONResponseOK(w, string(recordRespJson))
}

func (handler *Handler) HandleClearResult(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.results.clear")
	defer span.End()

	vars := mux.Vars(r)
	programID := vars["id"]
	if programID == "" {
		http.Error(w, "error, program id empty", http.StatusBadRequest)
		return
	}
	workoutIndex, err := strconv.Atoi(vars["index"])
	if err != nil {
		http.Error(w, "error, workout index NaN", http.StatusBadRequest)
		return
	}
	slotID := vars["slotId"]
	if slotID == "" {
		http.Error(w, "error, slot id empty", http.StatusBadRequest)
		return
	}

	if err := handler.service.ClearResult(ctx, programID, workoutIndex, slotID); err != nil {
		if errors.Is(err, catalog.ErrProgramNotFound) {
			http.Error(w, "program not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrResultNotFound) {
			log.Debugf("result not found: [%s] workout %d, slot %s", programID, workoutIndex, slotID)
			http.Error(w, "result not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrWorkoutIndexOutOfRange) {
			http.Error(w, "workout index out of range", http.StatusBadRequest)
			return
		}
		log.Errorf("failed to clear result [%s] [%d] [%s]: %s", programID, workoutIndex, slotID, err)
		http.Error(w, "failed to clear result", http.StatusInternalServerError)
		return
	}

	clearRespJson, err := json.Marshal(RecordResultResponse{
		ProgramID:    programID,
		WorkoutIndex: workoutIndex,
		SlotID:       slotID,
	})
	if err != nil {
		log.Errorf("failed to marshal clear result response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(clearRespJson))
}

func (handler *Handler) HandleExerciseHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.history")
	defer span.End()

	vars := mux.Vars(r)
	programID := vars["id"]
	if programID == "" {
		http.Error(w, "error, program id empty", http.StatusBadRequest)
		return
	}
	exerciseID := vars["exerciseId"]
	if exerciseID == "" {
		http.Error(w, "error, exercise id empty", http.StatusBadRequest)
		return
	}

	exHistory, err := handler.analyzer.ExerciseHistory(ctx, programID, exerciseID)
	if err != nil {
		if errors.Is(err, catalog.ErrProgramNotFound) {
			http.Error(w, "program not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrExerciseNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get exercise history [%s] [%s]: %s", programID, exerciseID, err)
		http.Error(w, "failed to get exercise history", http.StatusInternalServerError)
		return
	}

	exHistoryJson, err := json.Marshal(exHistory)
	if err != nil {
		log.Errorf("failed to marshal exercise history: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, exHistoryJson, http.StatusOK)
}

func (handler *Handler) HandleTierBreakdown(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.tiers")
	defer span.End()

	vars := mux.Vars(r)
	programID := vars["id"]
	if programID == "" {
		http.Error(w, "error, program id empty", http.StatusBadRequest)
		return
	}

	breakdown, err := handler.analyzer.TierBreakdown(ctx, programID)
	if err != nil {
		if errors.Is(err, catalog.ErrProgramNotFound) {
			http.Error(w, "program not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get tier breakdown for program %s: %s", programID, err)
		http.Error(w, "failed to get tier breakdown", http.StatusInternalServerError)
		return
	}

	breakdownJson, err := json.Marshal(breakdown)
	if err != nil {
		log.Errorf("failed to marshal tier breakdown: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, breakdownJson, http.StatusOK)
}
