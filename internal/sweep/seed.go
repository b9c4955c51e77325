/*
Copyright 2021 GramLabs, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package sweep

import "time"

// SeedSource produces the seed each sweep round is reseeded with.
type SeedSource interface {
	Next() uint64
}

// WallClock seeds every round from the current time in nanoseconds.
type WallClock struct {
	// Now returns the current time, time.Now when nil
	Now func() time.Time
}

// Next returns the current time as a seed.
func (w WallClock) Next() uint64 {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	return uint64(now().UnixNano())
}

// FixedSeeds replays a fixed list of seeds, continuing with consecutive values once the list is
// exhausted.
type FixedSeeds struct {
	Seeds []uint64
	next  int
}

// Next returns the next seed from the list.
func (f *FixedSeeds) Next() uint64 {
	i := f.next
	f.next++
	if i < len(f.Seeds) {
		return f.Seeds[i]
	}
	var last uint64
	if len(f.Seeds) > 0 {
		last = f.Seeds[len(f.Seeds)-1]
	}
	return last + uint64(i-len(f.Seeds)+1)
}
