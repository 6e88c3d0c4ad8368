/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package supervisor

import (
	"fmt"

	queuepkg "github.com/Workiva/go-datastructures/queue"
)

// solutionQueue hands improved solutions from the drain loop to the
// reporter goroutine.
type solutionQueue struct {
	q *queuepkg.Queue
}

func newSolutionQueue(capacity int64) *solutionQueue {
	return &solutionQueue{q: queuepkg.New(capacity)}
}

func (q *solutionQueue) put(s Solution) error {
	return q.q.Put(s)
}

// pop blocks until a solution is available or the queue is disposed.
func (q *solutionQueue) pop() (Solution, error) {
	items, err := q.q.Get(1)
	if err != nil {
		return Solution{}, err
	}
	s, ok := items[0].(Solution)
	if !ok {
		return Solution{}, fmt.Errorf("invalid queue element type %T", items[0])
	}
	return s, nil
}

func (q *solutionQueue) dispose() {
	q.q.Dispose()
}
