package main

//// Small CLI tool used to replay a program definition offline and print the
//// resulting schedule, without needing the service, a database, or redis.

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/lgrbic/progressor/internal/progression"
)

func init() {
	log.SetOutput(os.Stdout)
}

func main() {
	// Parse and validate the input
	definitionPath, configPath, resultsPath, asJSON, err := parseAndValidateInput()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// Read and decode the program definition
	definitionData, err := os.ReadFile(definitionPath)
	if err != nil {
		log.Fatalf("Failed to read definition file: %v\n", err)
	}
	def, err := progression.DecodeDefinition(bytes.NewReader(definitionData))
	if err != nil {
		log.Fatalf("Failed to decode definition: %v\n", err)
	}
	if err := progression.ValidateDefinition(def); err != nil {
		log.Fatalf("Definition is not valid: %v\n", err)
	}

	cfg := progression.Config{}
	if configPath != "" {
		if err := readJSONFile(configPath, &cfg); err != nil {
			log.Fatalf("Failed to read config: %v\n", err)
		}
	}

	results := progression.Results{}
	if resultsPath != "" {
		if err := readJSONFile(resultsPath, &results); err != nil {
			log.Fatalf("Failed to read results: %v\n", err)
		}
	}

	workouts, err := progression.Compute(def, cfg, results)
	if err != nil {
		log.Fatalf("Failed to compute the schedule: %v\n", err)
	}

	if asJSON {
		workoutsJSON, err := json.MarshalIndent(workouts, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal workouts: %v\n", err)
		}
		fmt.Println(string(workoutsJSON))
		return
	}

	log.Printf("Program: %s (%s), version %d\n", def.Name, def.ID, def.Version)
	log.Printf("Workouts: %d, cycle length: %d\n", def.TotalWorkouts, def.CycleLength)
	log.Println("")
	printSchedule(workouts)
}

func readJSONFile(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func printSchedule(workouts []progression.WorkoutRow) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tDAY\tSLOT\tEXERCISE\tTIER\tWEIGHT\tSCHEME\tSTAGE\tRESULT\tFLAGS")
	for _, workout := range workouts {
		for _, slot := range workout.Slots {
			fmt.Fprintf(
				w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				workout.Index, workout.DayName, slot.SlotID, slot.ExerciseName, slot.Tier,
				formatWeight(slot.Weight), formatScheme(slot), slot.Stage,
				formatResult(slot), formatFlags(slot),
			)
		}
	}
	if err := w.Flush(); err != nil {
		log.Fatalf("Failed to print the schedule: %v\n", err)
	}
}

func formatWeight(weight float64) string {
	if weight == 0 {
		return "-"
	}
	return strconv.FormatFloat(weight, 'f', -1, 64)
}

// formatScheme renders the set/rep scheme, e.g. "3x5", "3x5+" for an AMRAP
// last set, "3x10-15" for a rep range, and the full resolved ladder for
// percent-based slots.
func formatScheme(slot progression.SlotRow) string {
	if len(slot.Prescriptions) > 0 {
		parts := make([]string, 0, len(slot.Prescriptions))
		for _, p := range slot.Prescriptions {
			parts = append(parts, fmt.Sprintf("%dx%d@%s", p.Sets, p.Reps, formatWeight(p.Weight)))
		}
		return strings.Join(parts, " ")
	}

	scheme := fmt.Sprintf("%dx%d", slot.Sets, slot.Reps)
	if slot.RepsMax > 0 {
		scheme = fmt.Sprintf("%dx%d-%d", slot.Sets, slot.Reps, slot.RepsMax)
	}
	if slot.IsAmrap {
		scheme += "+"
	}
	return scheme
}

func formatResult(slot progression.SlotRow) string {
	if slot.Result == "" {
		return "-"
	}
	if slot.AmrapReps != nil {
		return fmt.Sprintf("%s (%d reps)", slot.Result, *slot.AmrapReps)
	}
	return string(slot.Result)
}

func formatFlags(slot progression.SlotRow) string {
	var flags []string
	if slot.IsChanged {
		flags = append(flags, "changed")
	}
	if slot.IsDeload {
		flags = append(flags, "deload")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

func parseAndValidateInput() (string, string, string, bool, error) {
	// Define flags for the definition, config and results file paths
	definitionPath := flag.String("definition", "", "Path to the program definition JSON file")
	configPath := flag.String("config", "", "Path to the program config JSON file (optional)")
	resultsPath := flag.String("results", "", "Path to the logged results JSON file (optional)")
	asJSON := flag.Bool("json", false, "Print the schedule as JSON instead of a table")

	// Parse the flags
	flag.Parse()

	// Validate required inputs
	if *definitionPath == "" {
		return "", "", "", false, fmt.Errorf("path to the definition file is required (use -definition)")
	}

	// Check that the provided files exist
	if _, err := os.Stat(*definitionPath); os.IsNotExist(err) {
		return "", "", "", false, fmt.Errorf("definition file does not exist at path: %s", *definitionPath)
	}
	if *configPath != "" {
		if _, err := os.Stat(*configPath); os.IsNotExist(err) {
			return "", "", "", false, fmt.Errorf("config file does not exist at path: %s", *configPath)
		}
	}
	if *resultsPath != "" {
		if _, err := os.Stat(*resultsPath); os.IsNotExist(err) {
			return "", "", "", false, fmt.Errorf("results file does not exist at path: %s", *resultsPath)
		}
	}

	// Return the validated inputs
	return *definitionPath, *configPath, *resultsPath, *asJSON, nil
}
