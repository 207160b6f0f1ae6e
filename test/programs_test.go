package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/lgrbic/progressor/internal/progression"
	"github.com/lgrbic/progressor/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) listProgramsRequest(ctx context.Context) schedule.ListProgramsResponse {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/programs", serverEndpoint), nil)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var listResp schedule.ListProgramsResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &listResp))
	return listResp
}

func (s *IntegrationTestSuite) getProgramRequest(ctx context.Context, programID string) progression.Definition {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/programs/%s", serverEndpoint, programID), nil)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var def progression.Definition
	require.NoError(s.T(), json.Unmarshal(respBytes, &def))
	return def
}

func (s *IntegrationTestSuite) TestPrograms() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.T().Run("list programs", func(t *testing.T) {
		listResp := s.listProgramsRequest(ctx)
		require.Equal(t, 3, listResp.Total)
		require.Len(t, listResp.Programs, 3)

		id2summary := make(map[string]schedule.ProgramSummary)
		for _, summary := range listResp.Programs {
			id2summary[summary.ID] = summary
		}
		require.Contains(t, id2summary, "gzclp")
		require.Contains(t, id2summary, "linear-lp")
		require.Contains(t, id2summary, "wendler-531")

		linearLp := id2summary["linear-lp"]
		assert.Equal(t, "Linear 5x5", linearLp.Name)
		assert.Equal(t, 2, linearLp.CycleLength)
		assert.Equal(t, 60, linearLp.TotalWorkouts)
		assert.Equal(t, 2, linearLp.Days)

		gzclp := id2summary["gzclp"]
		assert.Equal(t, "GZCLP", gzclp.Name)
		assert.Equal(t, 4, gzclp.CycleLength)
		assert.Equal(t, 48, gzclp.TotalWorkouts)
	})

	s.T().Run("get program", func(t *testing.T) {
		def := s.getProgramRequest(ctx, "linear-lp")
		assert.Equal(t, "linear-lp", def.ID)
		assert.Equal(t, "Linear 5x5", def.Name)
		require.Len(t, def.Days, 2)
		assert.Equal(t, "Day A", def.Days[0].Name)
		assert.Equal(t, "Day B", def.Days[1].Name)
		require.Len(t, def.Days[0].Slots, 3)
		assert.Equal(t, "sq-5x5", def.Days[0].Slots[0].ID)
		assert.Equal(t, "Back Squat", def.ExerciseName("squat"))
	})

	s.T().Run("get unknown program", func(t *testing.T) {
		req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/programs/no-such-program", serverEndpoint), nil)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})

	s.T().Run("workouts without config", func(t *testing.T) {
		workoutsResp := s.getWorkoutsRequest(ctx, "linear-lp")
		require.Equal(t, 60, workoutsResp.Total)
		require.Len(t, workoutsResp.Workouts, 60)

		// no config stored yet, so every slot resolves with a zero weight
		first := workoutsResp.Workouts[0]
		assert.Equal(t, 0, first.Index)
		assert.Equal(t, "Day A", first.DayName)
		require.Len(t, first.Slots, 3)
		assert.Equal(t, "sq-5x5", first.Slots[0].SlotID)
		assert.Equal(t, "Back Squat", first.Slots[0].ExerciseName)
		assert.Equal(t, float64(0), first.Slots[0].Weight)
		assert.Equal(t, 5, first.Slots[0].Sets)
		assert.Equal(t, 5, first.Slots[0].Reps)

		assert.Equal(t, "Day B", workoutsResp.Workouts[1].DayName)
	})

	s.T().Run("single workout", func(t *testing.T) {
		workout := s.getWorkoutRequest(ctx, "linear-lp", 3)
		assert.Equal(t, 3, workout.Index)
		assert.Equal(t, "Day B", workout.DayName)
		require.Len(t, workout.Slots, 3)
	})

	s.T().Run("workout index out of range", func(t *testing.T) {
		req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/programs/linear-lp/workouts/60", serverEndpoint), nil)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	s.T().Run("workout index not a number", func(t *testing.T) {
		req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/programs/linear-lp/workouts/first", serverEndpoint), nil)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})
}
