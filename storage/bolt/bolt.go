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

// Package bolt is a Storage based on bbolt.
package bolt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Comcast/skillets/storage"
	"github.com/Comcast/skillets/util"

	bolt "go.etcd.io/bbolt"
)

// Storage keeps each skillet's runs in the skillet's bucket, keyed by
// run id.
type Storage struct {
	filename string
	db       *bolt.DB
}

func NewStorage(filename string) (*Storage, error) {
	return &Storage{
		filename: filename,
	}, nil
}

func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *Storage) Put(ctx context.Context, r *storage.Run) error {
	util.Logf("bolt Put %s %s", r.Skillet, r.Id)

	js, err := json.Marshal(r)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(r.Skillet))
		if err != nil {
			return err
		}
		return b.Put([]byte(r.Id), js)
	})
}

func (s *Storage) List(ctx context.Context, skillet string) ([]*storage.Run, error) {
	rs := make([]*storage.Run, 0, 32)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(skillet))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for id, bs := c.First(); id != nil; id, bs = c.Next() {
			var r storage.Run
			if err := json.Unmarshal(bs, &r); err != nil {
				return err
			}
			r.Id = string(id)
			rs = append(rs, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.Logf("bolt List %s found %d runs", skillet, len(rs))

	storage.SortRuns(rs)

	return rs, nil
}

func (s *Storage) Get(ctx context.Context, skillet, id string) (*storage.Run, error) {
	var r *storage.Run
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(skillet))
		if b == nil {
			return storage.NotFound
		}
		bs := b.Get([]byte(id))
		if bs == nil {
			return storage.NotFound
		}
		r = &storage.Run{}
		return json.Unmarshal(bs, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}
