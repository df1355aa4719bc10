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

// Package main is an HTTP service that executes skillets.
//
// Configuration comes from flags, which default to the environment
// variables SKILLETD_ADDR, SKILLETD_DIR, and SKILLETD_DB.
//
//	GET  /skillets
//	GET  /skillets/{name}
//	POST /skillets/{name}/execute
//	GET  /skillets/{name}/runs
//	GET  /skillets/{name}/runs/{id}
//	POST /reload
//	GET  /results/ws
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/Comcast/skillets/storage"
	"github.com/Comcast/skillets/storage/bolt"
	"github.com/Comcast/skillets/util"
)

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.LUTC)
}

func getenv(name, def string) string {
	if s := os.Getenv(name); s != "" {
		return s
	}
	return def
}

func main() {
	var (
		addr    = flag.String("a", getenv("SKILLETD_ADDR", ":8080"), "HTTP service address")
		dir     = flag.String("d", getenv("SKILLETD_DIR", "."), "skillets directory")
		db      = flag.String("p", getenv("SKILLETD_DB", ""), "optional bolt database for runs")
		reload  = flag.Duration("r", 0, "reload interval (0 to disable)")
		timeout = flag.Duration("t", 5*time.Minute, "execution timeout")
	)
	flag.BoolVar(&util.Logging, "v", util.Logging, "verbose logging")

	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var store storage.Storage = storage.NewMemStorage()
	if *db != "" {
		b, err := bolt.NewStorage(*db)
		if err != nil {
			log.Fatal(err)
		}
		store = b
	}
	if err := store.Open(ctx); err != nil {
		log.Fatal(err)
	}
	defer store.Close(ctx)

	s := NewService(*dir, store)
	s.Timeout = *timeout
	if err := s.Reload(ctx); err != nil {
		log.Fatal(err)
	}

	if 0 < *reload {
		go s.ReloadEvery(ctx, *reload)
	}

	server := &http.Server{
		Addr:    *addr,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdown, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		server.Shutdown(shutdown)
	}()

	log.Printf("serving %s on %s", *dir, *addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	log.Printf("main terminating")
}
