package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/lgrbic/progressor/internal/progression"
	"github.com/lgrbic/progressor/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) deleteAllScheduleData(ctx context.Context) {
	_, err := s.dbPool.Exec(ctx, "DELETE FROM workout_result")
	require.NoError(s.T(), err)
	_, err = s.dbPool.Exec(ctx, "DELETE FROM program_config")
	require.NoError(s.T(), err)
}

// newAppRequest builds a request the way the workout logger app sends it,
// shared client secret in the Authorization header.
func (s *IntegrationTestSuite) newAppRequest(ctx context.Context, method, url string, body io.Reader) *http.Request {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "Progressor/1.2 (iOS)")
	req.Header.Set("Authorization", testClientAppSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func (s *IntegrationTestSuite) putConfigRequest(
	ctx context.Context,
	programID string,
	cfg map[string]any,
) schedule.PutConfigResponse {
	cfgJson, err := json.Marshal(cfg)
	require.NoError(s.T(), err)

	req := s.newAppRequest(
		ctx, "PUT",
		fmt.Sprintf("%s/programs/%s/config", serverEndpoint, programID),
		bytes.NewReader(cfgJson),
	)

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var putResp schedule.PutConfigResponse
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&putResp))
	return putResp
}

func (s *IntegrationTestSuite) getConfigRequest(ctx context.Context, programID string) progression.Config {
	req, err := http.NewRequestWithContext(
		ctx, "GET",
		fmt.Sprintf("%s/programs/%s/config", serverEndpoint, programID),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var cfg progression.Config
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&cfg))
	return cfg
}

func (s *IntegrationTestSuite) setConfigValueRequest(ctx context.Context, programID, key, value string) {
	req := s.newAppRequest(
		ctx, "PUT",
		fmt.Sprintf("%s/programs/%s/config/%s", serverEndpoint, programID, key),
		strings.NewReader(fmt.Sprintf(`{"value": %q}`, value)),
	)

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func (s *IntegrationTestSuite) getWorkoutsRequest(ctx context.Context, programID string) schedule.WorkoutsResponse {
	req, err := http.NewRequestWithContext(
		ctx, "GET",
		fmt.Sprintf("%s/programs/%s/workouts", serverEndpoint, programID),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var workoutsResp schedule.WorkoutsResponse
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&workoutsResp))
	return workoutsResp
}

func (s *IntegrationTestSuite) getWorkoutRequest(ctx context.Context, programID string, workoutIndex int) progression.WorkoutRow {
	req, err := http.NewRequestWithContext(
		ctx, "GET",
		fmt.Sprintf("%s/programs/%s/workouts/%d", serverEndpoint, programID, workoutIndex),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var workout progression.WorkoutRow
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&workout))
	return workout
}

func (s *IntegrationTestSuite) recordResultRequest(
	ctx context.Context,
	programID string,
	workoutIndex int,
	slotID string,
	res progression.SlotResult,
) schedule.RecordResultResponse {
	resJson, err := json.Marshal(res)
	require.NoError(s.T(), err)

	req := s.newAppRequest(
		ctx, "PUT",
		fmt.Sprintf("%s/programs/%s/workouts/%d/results/%s", serverEndpoint, programID, workoutIndex, slotID),
		bytes.NewReader(resJson),
	)

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var recordResp schedule.RecordResultResponse
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&recordResp))
	return recordResp
}

// tryRecordResult sends a raw record-result payload and reports the status
// code and trimmed response body. The index is a string on purpose, so
// non-numeric path segments can be exercised too.
func (s *IntegrationTestSuite) tryRecordResult(
	ctx context.Context,
	programID, workoutIndex, slotID, payload string,
) (int, string) {
	req := s.newAppRequest(
		ctx, "PUT",
		fmt.Sprintf("%s/programs/%s/workouts/%s/results/%s", serverEndpoint, programID, workoutIndex, slotID),
		strings.NewReader(payload),
	)

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)
	return resp.StatusCode, strings.TrimSpace(string(respBytes))
}

func (s *IntegrationTestSuite) clearResultRequest(
	ctx context.Context,
	programID string,
	workoutIndex int,
	slotID string,
) int {
	req := s.newAppRequest(
		ctx, "DELETE",
		fmt.Sprintf("%s/programs/%s/workouts/%d/results/%s", serverEndpoint, programID, workoutIndex, slotID),
		nil,
	)

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	resp.Body.Close()
	return resp.StatusCode
}

func (s *IntegrationTestSuite) getProgressRequest(ctx context.Context, programID string) schedule.ProgramProgress {
	req, err := http.NewRequestWithContext(
		ctx, "GET",
		fmt.Sprintf("%s/programs/%s/progress", serverEndpoint, programID),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var progress schedule.ProgramProgress
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&progress))
	return progress
}

func (s *IntegrationTestSuite) getExerciseHistoryRequest(
	ctx context.Context,
	programID, exerciseID string,
) schedule.ExerciseHistory {
	req, err := http.NewRequestWithContext(
		ctx, "GET",
		fmt.Sprintf("%s/programs/%s/exercises/%s/history", serverEndpoint, programID, exerciseID),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var history schedule.ExerciseHistory
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&history))
	return history
}

func (s *IntegrationTestSuite) getTierBreakdownRequest(ctx context.Context, programID string) map[string]schedule.TierStats {
	req, err := http.NewRequestWithContext(
		ctx, "GET",
		fmt.Sprintf("%s/programs/%s/stats/tiers", serverEndpoint, programID),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var breakdown map[string]schedule.TierStats
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&breakdown))
	return breakdown
}

func (s *IntegrationTestSuite) TestSchedule() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.deleteAllScheduleData(ctx)

	s.T().Run("mutations require auth", func(t *testing.T) {
		// no session token, not the app
		req, err := http.NewRequestWithContext(
			ctx, "PUT",
			fmt.Sprintf("%s/programs/linear-lp/config", serverEndpoint),
			strings.NewReader(`{"squat": 100}`),
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, "no can do", strings.TrimSpace(string(respBytes)))

		// app user agent with a wrong secret
		req, err = http.NewRequestWithContext(
			ctx, "PUT",
			fmt.Sprintf("%s/programs/linear-lp/config", serverEndpoint),
			strings.NewReader(`{"squat": 100}`),
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "Progressor/1.2 (iOS)")
		req.Header.Set("Authorization", "bogus-secret")
		req.Header.Set("Content-Type", "application/json")

		resp, err = s.httpClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	s.T().Run("replace and read config", func(t *testing.T) {
		putResp := s.putConfigRequest(ctx, "linear-lp", map[string]any{
			"squat":    100,
			"bench":    60,
			"press":    40,
			"deadlift": 140,
			"row":      50,
		})
		assert.Equal(t, "linear-lp", putResp.ProgramID)
		assert.Equal(t, 5, putResp.Size)

		cfg := s.getConfigRequest(ctx, "linear-lp")
		assert.Equal(t, progression.Config{
			"squat":    "100",
			"bench":    "60",
			"press":    "40",
			"deadlift": "140",
			"row":      "50",
		}, cfg)

		s.setConfigValueRequest(ctx, "linear-lp", "rounding", "2.5")
		cfg = s.getConfigRequest(ctx, "linear-lp")
		require.Len(t, cfg, 6)
		assert.Equal(t, "2.5", cfg["rounding"])

		// untouched program has no config at all
		assert.Empty(t, s.getConfigRequest(ctx, "gzclp"))
	})

	s.T().Run("mutation with session token", func(t *testing.T) {
		token := s.doLogin(ctx)

		req, err := http.NewRequestWithContext(
			ctx, "PUT",
			fmt.Sprintf("%s/programs/linear-lp/config/rounding", serverEndpoint),
			strings.NewReader(`{"value": "2.5"}`),
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-PROGRESSOR-TOKEN", token)

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Contains(t, string(respBytes), `"key":"rounding"`)
	})

	s.T().Run("config write needs json content type", func(t *testing.T) {
		req, err := http.NewRequestWithContext(
			ctx, "PUT",
			fmt.Sprintf("%s/programs/linear-lp/config", serverEndpoint),
			strings.NewReader(`{"squat": 100}`),
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "Progressor/1.2 (iOS)")
		req.Header.Set("Authorization", testClientAppSecret)

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, "invalid content type", strings.TrimSpace(string(respBytes)))
	})

	s.T().Run("replay without results", func(t *testing.T) {
		workoutsResp := s.getWorkoutsRequest(ctx, "linear-lp")
		require.Equal(t, 60, workoutsResp.Total)
		workouts := workoutsResp.Workouts

		// workout 0, day A: everything at its starting weight
		require.Len(t, workouts[0].Slots, 3)
		sq := workouts[0].Slots[0]
		assert.Equal(t, "sq-5x5", sq.SlotID)
		assert.Equal(t, float64(100), sq.Weight)
		assert.Equal(t, 5, sq.Sets)
		assert.Equal(t, 5, sq.Reps)
		assert.Equal(t, "primary", sq.Role)
		assert.False(t, sq.IsChanged)
		assert.False(t, sq.IsDeload)
		assert.Equal(t, float64(60), workouts[0].Slots[1].Weight)
		assert.Equal(t, "secondary", workouts[0].Slots[1].Role)
		assert.Equal(t, float64(50), workouts[0].Slots[2].Weight)

		// workout 1, day B: squat already moved up, press and deadlift fresh
		assert.Equal(t, "Day B", workouts[1].DayName)
		assert.Equal(t, 102.5, workouts[1].Slots[0].Weight)
		assert.Equal(t, float64(40), workouts[1].Slots[1].Weight)
		assert.Equal(t, float64(140), workouts[1].Slots[2].Weight)
		assert.Equal(t, 1, workouts[1].Slots[2].Sets)

		// workout 2, day A again
		assert.Equal(t, float64(105), workouts[2].Slots[0].Weight)
		assert.Equal(t, 62.5, workouts[2].Slots[1].Weight)
		assert.Equal(t, 52.5, workouts[2].Slots[2].Weight)

		workout := s.getWorkoutRequest(ctx, "linear-lp", 1)
		assert.Equal(t, 1, workout.Index)
		assert.Equal(t, "Day B", workout.DayName)
		assert.Equal(t, 102.5, workout.Slots[0].Weight)
	})

	s.T().Run("failure triggers deload", func(t *testing.T) {
		recordResp := s.recordResultRequest(ctx, "linear-lp", 0, "sq-5x5", progression.SlotResult{
			Result: progression.OutcomeFail,
		})
		assert.Equal(t, "linear-lp", recordResp.ProgramID)
		assert.Equal(t, 0, recordResp.WorkoutIndex)
		assert.Equal(t, "sq-5x5", recordResp.SlotID)

		workouts := s.getWorkoutsRequest(ctx, "linear-lp").Workouts

		// the failed workout itself still shows the attempted weight
		sq0 := workouts[0].Slots[0]
		assert.Equal(t, float64(100), sq0.Weight)
		assert.Equal(t, progression.OutcomeFail, sq0.Result)
		assert.False(t, sq0.IsChanged)

		// next squat occurrence drops 10%
		sq1 := workouts[1].Slots[0]
		assert.Equal(t, float64(90), sq1.Weight)
		assert.True(t, sq1.IsDeload)
		assert.True(t, sq1.IsChanged)
		assert.True(t, workouts[1].IsChanged)

		// and climbs again from there, the changed flag is sticky
		sq2 := workouts[2].Slots[0]
		assert.Equal(t, 92.5, sq2.Weight)
		assert.False(t, sq2.IsDeload)
		assert.True(t, sq2.IsChanged)
	})

	s.T().Run("progress", func(t *testing.T) {
		progress := s.getProgressRequest(ctx, "linear-lp")
		assert.Equal(t, "linear-lp", progress.ProgramID)
		assert.Equal(t, 60, progress.TotalWorkouts)
		assert.Equal(t, 1, progress.ResultsCount)
		assert.Equal(t, 1, progress.NextWorkoutIndex)
		assert.False(t, progress.Completed)
	})

	s.T().Run("clear result restores the schedule", func(t *testing.T) {
		require.Equal(t, http.StatusOK, s.clearResultRequest(ctx, "linear-lp", 0, "sq-5x5"))

		workouts := s.getWorkoutsRequest(ctx, "linear-lp").Workouts
		sq1 := workouts[1].Slots[0]
		assert.Equal(t, 102.5, sq1.Weight)
		assert.False(t, sq1.IsDeload)
		assert.False(t, sq1.IsChanged)

		progress := s.getProgressRequest(ctx, "linear-lp")
		assert.Equal(t, 0, progress.ResultsCount)
		assert.Equal(t, 0, progress.NextWorkoutIndex)

		// clearing it again finds nothing
		assert.Equal(t, http.StatusNotFound, s.clearResultRequest(ctx, "linear-lp", 0, "sq-5x5"))
	})

	s.T().Run("result validation", func(t *testing.T) {
		status, body := s.tryRecordResult(ctx, "linear-lp", "0", "sq-5x5", `{"result": "almost"}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body, "invalid workout result")

		// pr-5x5 is a day B slot, workout 0 is day A
		status, body = s.tryRecordResult(ctx, "linear-lp", "0", "pr-5x5", `{"result": "success"}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body, "slot not scheduled")

		status, body = s.tryRecordResult(ctx, "linear-lp", "999", "sq-5x5", `{"result": "success"}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body, "workout index out of range")

		status, body = s.tryRecordResult(ctx, "linear-lp", "abc", "sq-5x5", `{"result": "success"}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "error, workout index NaN", body)

		status, body = s.tryRecordResult(ctx, "linear-lp", "0", "sq-5x5", `{"result": "success", "amrapReps": -2}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body, "invalid workout result")

		status, body = s.tryRecordResult(ctx, "linear-lp", "0", "sq-5x5", `{"result": "success", "rpe": 11}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body, "invalid workout result")

		// nothing got stored along the way
		progress := s.getProgressRequest(ctx, "linear-lp")
		assert.Equal(t, 0, progress.ResultsCount)
	})

	s.T().Run("exercise history", func(t *testing.T) {
		history := s.getExerciseHistoryRequest(ctx, "linear-lp", "squat")
		assert.Equal(t, "squat", history.ExerciseID)
		assert.Equal(t, "Back Squat", history.ExerciseName)
		require.Len(t, history.Points, 60)

		first := history.Points[0]
		assert.Equal(t, 0, first.WorkoutIndex)
		assert.Equal(t, "Day A", first.DayName)
		assert.Equal(t, "sq-5x5", first.SlotID)
		assert.Equal(t, float64(100), first.Weight)
		assert.Equal(t, float64(2500), first.Volume)

		last := history.Points[59]
		assert.Equal(t, 59, last.WorkoutIndex)
		assert.Equal(t, 247.5, last.Weight)

		assert.Equal(t, 247.5, history.MaxWeight)
		assert.Equal(t, float64(260625), history.TotalVolume)

		// an exercise the program never schedules
		req, err := http.NewRequestWithContext(
			ctx, "GET",
			fmt.Sprintf("%s/programs/linear-lp/exercises/curl/history", serverEndpoint),
			nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})

	s.T().Run("tier breakdown", func(t *testing.T) {
		breakdown := s.getTierBreakdownRequest(ctx, "linear-lp")
		require.Len(t, breakdown, 3)

		t1 := breakdown["t1"]
		assert.Equal(t, 60, t1.Slots)
		assert.Equal(t, 300, t1.Sets)
		assert.Equal(t, 1500, t1.Reps)
		assert.Equal(t, float64(260625), t1.Volume)
		assert.Equal(t, 53.56, t1.VolumeShare)

		t2 := breakdown["t2"]
		assert.Equal(t, 90, t2.Slots)
		assert.Equal(t, 330, t2.Sets)
		assert.Equal(t, 1650, t2.Reps)
		assert.Equal(t, float64(161250), t2.Volume)

		t3 := breakdown["t3"]
		assert.Equal(t, 30, t3.Slots)
		assert.Equal(t, float64(64687.5), t3.Volume)

		assert.Greater(t, t1.VolumeShare, t2.VolumeShare)
		assert.Greater(t, t2.VolumeShare, t3.VolumeShare)
	})

	s.T().Run("training max wave", func(t *testing.T) {
		putResp := s.putConfigRequest(ctx, "wendler-531", map[string]any{"squat_tm": 140})
		assert.Equal(t, 1, putResp.Size)

		workouts := s.getWorkoutsRequest(ctx, "wendler-531").Workouts
		require.Len(t, workouts, 32)

		// week 1: top set at 85% of the training max, 5x10 supplemental at 50%
		top := workouts[0].Slots[0]
		assert.Equal(t, "w1-squat", top.SlotID)
		assert.Equal(t, float64(119), top.Weight)
		assert.Equal(t, 1, top.Sets)
		assert.Equal(t, 5, top.Reps)
		assert.True(t, top.IsAmrap)

		bbb := workouts[0].Slots[1]
		assert.Equal(t, "bbb-squat", bbb.SlotID)
		assert.Equal(t, float64(70), bbb.Weight)
		assert.Equal(t, 5, bbb.Sets)
		assert.Equal(t, 10, bbb.Reps)
		assert.True(t, bbb.IsGPP)
		require.Len(t, bbb.Prescriptions, 1)
		assert.Equal(t, float64(70), bbb.Prescriptions[0].Weight)

		// week 3: top single at 95%
		assert.Equal(t, "w3-squat", workouts[8].Slots[0].SlotID)
		assert.Equal(t, float64(133), workouts[8].Slots[0].Weight)

		// week 4: deload triple prescription off the configured max
		deload := workouts[12].Slots[0]
		assert.Equal(t, "w4-squat", deload.SlotID)
		require.Len(t, deload.Prescriptions, 3)
		assert.Equal(t, float64(55), deload.Prescriptions[0].Weight)
		assert.Equal(t, float64(70), deload.Prescriptions[1].Weight)
		assert.Equal(t, float64(85), deload.Prescriptions[2].Weight)
		assert.Equal(t, float64(85), deload.Weight)
		assert.Equal(t, 1, deload.Sets)
		assert.Equal(t, 5, deload.Reps)

		// no results yet, second cycle repeats the first
		assert.Equal(t, float64(119), workouts[16].Slots[0].Weight)

		// a big AMRAP single earns a training max bump
		amrapReps := 5
		s.recordResultRequest(ctx, "wendler-531", 8, "w3-squat", progression.SlotResult{
			Result:    progression.OutcomeSuccess,
			AmrapReps: &amrapReps,
		})

		workouts = s.getWorkoutsRequest(ctx, "wendler-531").Workouts

		// the logged workout itself is untouched
		logged := workouts[8].Slots[0]
		assert.Equal(t, float64(133), logged.Weight)
		assert.Equal(t, progression.OutcomeSuccess, logged.Result)
		require.NotNil(t, logged.AmrapReps)
		assert.Equal(t, 5, *logged.AmrapReps)

		// every TM-derived weight after it follows the new max
		assert.Equal(t, 123.5, workouts[16].Slots[0].Weight)
		w3Next := workouts[24].Slots[0]
		assert.Equal(t, float64(138), w3Next.Weight)
		assert.True(t, w3Next.IsChanged)

		// prescriptions keep reading the configured max, not the live one
		deload = workouts[12].Slots[0]
		assert.Equal(t, float64(55), deload.Prescriptions[0].Weight)
		assert.Equal(t, float64(85), deload.Prescriptions[2].Weight)
		assert.Equal(t, float64(70), workouts[16].Slots[1].Weight)
	})

	s.T().Run("stage ladder", func(t *testing.T) {
		putResp := s.putConfigRequest(ctx, "gzclp", map[string]any{
			"squat": 100,
			"bench": 80,
		})
		assert.Equal(t, 2, putResp.Size)

		workouts := s.getWorkoutsRequest(ctx, "gzclp").Workouts
		require.Len(t, workouts, 48)

		// day A1: 5x3+ squat, bench volume work at 65%, lat pulldown unconfigured
		t1Squat := workouts[0].Slots[0]
		assert.Equal(t, "t1-squat", t1Squat.SlotID)
		assert.Equal(t, 0, t1Squat.Stage)
		assert.Equal(t, 5, t1Squat.Sets)
		assert.Equal(t, 3, t1Squat.Reps)
		assert.True(t, t1Squat.IsAmrap)
		assert.Equal(t, float64(100), t1Squat.Weight)

		t2Bench := workouts[0].Slots[1]
		assert.Equal(t, "t2-bench", t2Bench.SlotID)
		assert.Equal(t, float64(52), t2Bench.Weight)
		assert.Equal(t, 3, t2Bench.Sets)
		assert.Equal(t, 10, t2Bench.Reps)

		t3Lat := workouts[0].Slots[2]
		assert.Equal(t, "t3-lat", t3Lat.SlotID)
		assert.Equal(t, float64(0), t3Lat.Weight)
		assert.Equal(t, 15, t3Lat.Reps)
		assert.Equal(t, 25, t3Lat.RepsMax)
		assert.Equal(t, "accessory", t3Lat.Role)

		// failing the t1 slot moves it down the stage ladder at the same weight
		s.recordResultRequest(ctx, "gzclp", 0, "t1-squat", progression.SlotResult{
			Result: progression.OutcomeFail,
		})

		workouts = s.getWorkoutsRequest(ctx, "gzclp").Workouts
		nextT1 := workouts[4].Slots[0]
		assert.Equal(t, 1, nextT1.Stage)
		assert.Equal(t, 6, nextT1.Sets)
		assert.Equal(t, 2, nextT1.Reps)
		assert.Equal(t, float64(100), nextT1.Weight)
		assert.True(t, nextT1.IsChanged)

		// an implicit pass on the new stage keeps climbing from there
		afterT1 := workouts[8].Slots[0]
		assert.Equal(t, 1, afterT1.Stage)
		assert.Equal(t, float64(105), afterT1.Weight)
	})
}
