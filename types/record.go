/*
 * Copyright 2026 Seqsift Authors
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

package types

// Record is one metadata row keyed by column name. Records are built once
// by the reader and never mutated afterwards.
type Record map[string]string

// Batch is an ordered slice of records sharing one header. Start is the
// zero-based ordinal of the first record within the whole input, so row
// order survives chunking.
type Batch struct {
	Columns  []string
	IDColumn string
	Records  []Record
	Start    int64
}

// Identifier returns the identifier of the i-th record in the batch.
func (b *Batch) Identifier(i int) string {
	return b.Records[i][b.IDColumn]
}

// Ordinal returns the global row number of the i-th record in the batch.
func (b *Batch) Ordinal(i int) int64 {
	return b.Start + int64(i)
}
