// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// IDMUS serializes an ID.
var IDMUS = idMUS{}

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	tmp, n, err := varint.Uint64.Unmarshal(bs)
	return ID(tmp), n, err
}

func (s idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

// CachedVectorMUS serializes a CachedVector.
// Layout: model string, vector length, vector components, creation time.
var CachedVectorMUS = cachedVectorMUS{}

type cachedVectorMUS struct{}

func (s cachedVectorMUS) Marshal(v CachedVector, bs []byte) (n int) {
	n = ord.String.Marshal(v.Model, bs)
	n += varint.PositiveInt.Marshal(len(v.Vector), bs[n:])
	for _, f := range v.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	n += varint.Int64.Marshal(v.CreatedAt, bs[n:])
	return
}

func (s cachedVectorMUS) Unmarshal(bs []byte) (v CachedVector, n int, err error) {
	v.Model, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var (
		length int
		n1     int
	)
	length, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if length < 0 || length > (len(bs)-n)/4 {
		err = ErrInvalidCachedVector
		return
	}
	v.Vector = make([]float32, length)
	for i := range v.Vector {
		v.Vector[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	v.CreatedAt, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	return
}

func (s cachedVectorMUS) Size(v CachedVector) (size int) {
	size = ord.String.Size(v.Model)
	size += varint.PositiveInt.Size(len(v.Vector))
	for _, f := range v.Vector {
		size += raw.Float32.Size(f)
	}
	return size + varint.Int64.Size(v.CreatedAt)
}
