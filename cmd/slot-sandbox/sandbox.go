package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ratio1/slotstore_sdk_go/internal/envelope"
	"github.com/Ratio1/slotstore_sdk_go/internal/httpx"
	"github.com/Ratio1/slotstore_sdk_go/pkg/slot"
	"github.com/Ratio1/slotstore_sdk_go/pkg/slot/mock"
)

type failConfig struct {
	rate float64
	code int
}

// sandbox serves the CStore slot endpoints from in-memory stores. Flat keys
// live in one mock; every hash key gets its own.
type sandbox struct {
	flat     *mock.Mock
	capacity int

	mu     sync.Mutex
	hashes map[string]*mock.Mock
}

func newSandbox(capacity int) *sandbox {
	return &sandbox{
		flat:     mock.New(mock.WithCapacity(capacity)),
		capacity: capacity,
		hashes:   make(map[string]*mock.Mock),
	}
}

func (s *sandbox) bucket(hkey string, create bool) *mock.Mock {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.hashes[hkey]
	if !ok && create {
		b = mock.New(mock.WithCapacity(s.capacity))
		s.hashes[hkey] = b
	}
	return b
}

func (s *sandbox) routes(logger *slog.Logger, delay time.Duration, failCfg failConfig) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/get_status", s.handleStatus)
	mux.HandleFunc("/get", s.handleGet)
	mux.HandleFunc("/set", s.handleSet)
	mux.HandleFunc("/hget", s.handleHGet)
	mux.HandleFunc("/hset", s.handleHSet)
	mux.HandleFunc("/hgetall", s.handleHGetAll)
	return withMiddleware(logger, delay, failCfg, mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withMiddleware(logger *slog.Logger, delay time.Duration, failCfg failConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(httpx.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(httpx.RequestIDHeader, requestID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		defer func() {
			logger.Info("request",
				"id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		}()

		if delay > 0 {
			time.Sleep(delay)
		}
		if failCfg.rate > 0 && rand.Float64() < failCfg.rate {
			status := failCfg.code
			if status == 0 {
				status = http.StatusInternalServerError
			}
			http.Error(rec, "failure injected", status)
			return
		}
		next.ServeHTTP(rec, r)
	})
}

func (s *sandbox) handleStatus(w http.ResponseWriter, r *http.Request) {
	keys, err := s.flat.Keys(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeResult(w, map[string]any{"keys": keys})
}

func (s *sandbox) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "missing key parameter", http.StatusBadRequest)
		return
	}
	readSlot(w, r, s.flat, key)
}

func (s *sandbox) handleHGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	hkey, key := q.Get("hkey"), q.Get("key")
	if hkey == "" || key == "" {
		http.Error(w, "missing hkey or key parameter", http.StatusBadRequest)
		return
	}
	b := s.bucket(hkey, false)
	if b == nil {
		writeResult(w, nil)
		return
	}
	readSlot(w, r, b, key)
}

func readSlot(w http.ResponseWriter, r *http.Request, store *mock.Mock, key string) {
	value, err := store.GetSlot(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if value == "" {
		writeResult(w, nil)
		return
	}
	writeResult(w, value)
}

type setPayload struct {
	HashKey string          `json:"hkey"`
	Key     string          `json:"key"`
	Value   json.RawMessage `json:"value"`
}

func (s *sandbox) handleSet(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeSet(w, r)
	if !ok {
		return
	}
	writeSlot(w, r, s.flat, payload)
}

func (s *sandbox) handleHSet(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeSet(w, r)
	if !ok {
		return
	}
	if payload.HashKey == "" {
		http.Error(w, "hkey is required", http.StatusBadRequest)
		return
	}
	writeSlot(w, r, s.bucket(payload.HashKey, true), payload)
}

func decodeSet(w http.ResponseWriter, r *http.Request) (setPayload, bool) {
	var payload setPayload
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return payload, false
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return payload, false
	}
	if payload.Key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return payload, false
	}
	return payload, true
}

func writeSlot(w http.ResponseWriter, r *http.Request, store *mock.Mock, payload setPayload) {
	value, err := envelope.Value(payload.Value)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := store.SetSlot(r.Context(), payload.Key, value); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, slot.ErrSlotTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeResult(w, true)
}

func (s *sandbox) handleHGetAll(w http.ResponseWriter, r *http.Request) {
	hkey := r.URL.Query().Get("hkey")
	if hkey == "" {
		http.Error(w, "missing hkey parameter", http.StatusBadRequest)
		return
	}
	b := s.bucket(hkey, false)
	if b == nil || b.Len() == 0 {
		writeResult(w, nil)
		return
	}
	writeResult(w, b.Snapshot())
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any{"result": result}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseFailConfig(raw string) (failConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return failConfig{}, nil
	}
	cfg := failConfig{code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return failConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		val = strings.TrimSpace(val)
		switch strings.TrimSpace(key) {
		case "rate":
			rate, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return failConfig{}, err
			}
			if rate < 0 || rate > 1 {
				return failConfig{}, fmt.Errorf("fail rate %v outside [0,1]", rate)
			}
			cfg.rate = rate
		case "code":
			code, err := strconv.Atoi(val)
			if err != nil {
				return failConfig{}, err
			}
			cfg.code = code
		default:
			return failConfig{}, fmt.Errorf("unknown fail key %q", key)
		}
	}
	return cfg, nil
}
