/* Copyright 2018 Comcast Cable Communications Management, LLC
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

package core

import (
	"sync/atomic"
	"unsafe"
)

// Skilleter enables other things to manifest themselves as Skillets.
//
// A Skillet is itself a Skilleter.  An UpdatableSkillet is also a
// Skilleter, but it's not itself Skillet.
type Skilleter interface {
	Skillet() *Skillet
}

// Skillet makes any Skillet a Skilleter.
func (s *Skillet) Skillet() *Skillet {
	return s
}

// UpdatableSkillet is a Skilleter with an underlying Skillet that can
// be changed at any time, which lets a service reload definitions
// while executions are running.
type UpdatableSkillet struct {
	skillet unsafe.Pointer // *Skillet
}

// NewUpdatableSkillet makes one with the given initial skillet, which
// can be changed later via SetSkillet.
func NewUpdatableSkillet(s *Skillet) *UpdatableSkillet {
	return &UpdatableSkillet{
		skillet: unsafe.Pointer(s),
	}
}

// SetSkillet atomically changes the underlying skillet.
func (s *UpdatableSkillet) SetSkillet(skillet *Skillet) error {
	atomic.StorePointer(&s.skillet, unsafe.Pointer(skillet))
	return nil
}

// Skillet implements the Skilleter interface.
func (s *UpdatableSkillet) Skillet() *Skillet {
	return (*Skillet)(atomic.LoadPointer(&s.skillet))
}
