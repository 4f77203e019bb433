package api

import (
	"Go2FlowText/internal/dataset"
	"Go2FlowText/internal/model"
	"Go2FlowText/internal/query"
	"Go2FlowText/internal/writer"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"
)

// AssembleRequest is the body of POST /api/v1/assemble.
type AssembleRequest struct {
	Flows       []string `json:"flows"`
	Label       int      `json:"label"`
	StrLabel    string   `json:"str_label"`
	Task        string   `json:"task"`
	Granularity string   `json:"granularity"`
}

// TaskInfo describes one task template.
type TaskInfo struct {
	Code        string `json:"code"`
	Phrase      string `json:"phrase"`
	Instruction string `json:"instruction"`
}

// Handler holds the dependencies for API handlers.
type Handler struct {
	datasetDir string
	querier    query.Querier
}

// NewHandler creates a handler serving the files under datasetDir. The
// querier may be nil when no ClickHouse store is configured.
func NewHandler(datasetDir string, querier query.Querier) *Handler {
	return &Handler{datasetDir: datasetDir, querier: querier}
}

// Router registers every route on a new mux router.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/tasks", h.tasksHandler).Methods("GET")
	r.HandleFunc("/api/v1/labels", h.labelsHandler).Methods("GET")
	r.HandleFunc("/api/v1/splits/{split}", h.splitHandler).Methods("GET")
	r.HandleFunc("/api/v1/assemble", h.assembleHandler).Methods("POST")
	r.HandleFunc("/api/v1/datasets/{name}/counts", h.countsHandler).Methods("GET")
	return r
}

func (h *Handler) tasksHandler(w http.ResponseWriter, r *http.Request) {
	granularity := r.URL.Query().Get("granularity")
	if granularity == "" {
		granularity = dataset.DefaultGranularity
	}
	tasks := make([]TaskInfo, 0, len(dataset.TaskCodes))
	for _, code := range dataset.TaskCodes {
		t := dataset.LookupTask(code)
		tasks = append(tasks, TaskInfo{Code: t.Code, Phrase: t.Phrase, Instruction: t.Instruction(granularity)})
	}
	writeJSON(w, tasks)
}

func (h *Handler) labelsHandler(w http.ResponseWriter, r *http.Request) {
	labels, err := writer.ReadLabels(filepath.Join(h.datasetDir, writer.LabelFile))
	if err != nil {
		writeFileError(w, err)
		return
	}
	writeJSON(w, labels)
}

func (h *Handler) splitHandler(w http.ResponseWriter, r *http.Request) {
	split := mux.Vars(r)["split"]
	if !query.ValidSplit(split) {
		http.Error(w, fmt.Sprintf("unknown split '%s'", split), http.StatusNotFound)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := writer.ReadRows(filepath.Join(h.datasetDir, split+".tsv"))
	if err != nil {
		writeFileError(w, err)
		return
	}
	if rows == nil {
		rows = []model.DatasetRow{}
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	writeJSON(w, rows)
}

func (h *Handler) assembleHandler(w http.ResponseWriter, r *http.Request) {
	var req AssembleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Flows) == 0 {
		http.Error(w, "flows must not be empty", http.StatusBadRequest)
		return
	}
	writeJSON(w, dataset.Assemble(req.Flows, req.Label, req.StrLabel, req.Task, req.Granularity))
}

func (h *Handler) countsHandler(w http.ResponseWriter, r *http.Request) {
	if h.querier == nil {
		http.Error(w, "no dataset store configured", http.StatusServiceUnavailable)
		return
	}
	counts, err := h.querier.ClassCounts(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query counts: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, counts)
}

func parseLimit(r *http.Request) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit '%s'", s)
	}
	return n, nil
}

func writeFileError(w http.ResponseWriter, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		http.Error(w, "dataset file not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(jsonBytes); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}
