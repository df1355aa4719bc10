/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/sio"
	"github.com/Comcast/skillets/storage"
	"github.com/Comcast/skillets/tools"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MaxInput limits the size of an execution's input.
var MaxInput int64 = 64 * 1024 * 1024

// Router makes the HTTP API.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Post("/reload", s.handleReload)
	r.Handle("/results/ws", s.Firehose)

	r.Route("/skillets", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Post("/execute", s.handleExecute)
			r.Get("/runs", s.handleRuns)
			r.Get("/runs/{id}", s.handleRun)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		then := time.Now()
		next.ServeHTTP(ww, r)
		log.Printf("%s %s %d %s %s", r.Method, r.URL.Path, ww.Status(),
			time.Since(then), middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, code int, x interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(x); err != nil {
		log.Printf("response error %s", err)
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"problems": s.Problems(),
	})
}

func (s *Service) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Reload(r.Context()); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.handleHealth(w, r)
}

// Summary is a skillet's listing.
type Summary struct {
	Name        string `json:"name"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
}

func summarize(sk *core.Skillet) *Summary {
	return &Summary{
		Name:        sk.Name,
		Label:       sk.Label,
		Description: sk.Description,
		Type:        sk.Type,
	}
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	sks := s.Skillets()
	acc := make([]*Summary, len(sks))
	for i, sk := range sks {
		acc[i] = summarize(sk)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"skillets": acc})
}

func (s *Service) find(w http.ResponseWriter, r *http.Request) (*core.Skillet, bool) {
	name := chi.URLParam(r, "name")
	sk, have := s.Find(name)
	if !have {
		jsonError(w, (&NotFound{name}).Error(), http.StatusNotFound)
		return nil, false
	}
	return sk.Skillet(), true
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	sk, ok := s.find(w, r)
	if !ok {
		return
	}
	names := make([]string, len(sk.Snippets))
	for i, sn := range sk.Snippets {
		names[i] = sn.Name
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"skillet":   summarize(sk),
		"labels":    sk.Labels,
		"variables": sk.Variables,
		"snippets":  names,
	})
}

// handleExecute runs a skillet with the request body (a JSON object)
// as input.  The "format" query parameter selects the response:
// "message" (the default), "full", or "html".
func (s *Service) handleExecute(w http.ResponseWriter, r *http.Request) {
	sk, ok := s.find(w, r)
	if !ok {
		return
	}

	input := make(map[string]interface{})
	bs, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxInput))
	if err != nil {
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	if 0 < len(bs) {
		if err = json.Unmarshal(bs, &input); err != nil {
			jsonError(w, "bad input: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	res, err := s.Execute(r.Context(), sk.Name, input)
	if res == nil {
		var nf *NotFound
		if errors.As(err, &nf) {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	switch r.URL.Query().Get("format") {
	case "full":
		writeJSON(w, http.StatusOK, res)
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tools.RenderHTML(res, sk.OutputTemplate, sk.Env(), w); err != nil {
			log.Printf("report error %s", err)
		}
	default:
		writeJSON(w, http.StatusOK, sio.NewMessage(res))
	}
}

func (s *Service) handleRuns(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rs, err := s.Storage.List(r.Context(), name)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// Lists don't need every snippet result.
	acc := make([]*storage.Run, len(rs))
	for i, run := range rs {
		c := *run
		c.Results = nil
		acc[i] = &c
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": acc})
}

func (s *Service) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.Storage.Get(r.Context(), chi.URLParam(r, "name"), chi.URLParam(r, "id"))
	if err == storage.NotFound {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
