// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package bridge_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/apache/arrow-datafusion-c/go/dfc/internal/bridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type BridgeTests struct {
	suite.Suite

	b *bridge.Bridge
}

func (s *BridgeTests) SetupTest() {
	var err error
	s.b, err = bridge.New(2, nil)
	s.Require().NoError(err)
}

func (s *BridgeTests) TearDownTest() {
	s.NoError(s.b.Close())
}

func (s *BridgeTests) TestRunReturnsTaskError() {
	sentinel := errors.New("task failed")
	err := s.b.Run(context.Background(), func(context.Context) error { return sentinel })
	s.ErrorIs(err, sentinel)
}

func (s *BridgeTests) TestRunRecoversPanic() {
	err := s.b.Run(context.Background(), func(context.Context) error {
		panic("kaboom")
	})

	var dfcErr dfc.Error
	s.Require().ErrorAs(err, &dfcErr)
	s.Equal(dfc.ErrorInternal, dfcErr.Code)
	s.Contains(dfcErr.Msg, "kaboom")

	// the pool keeps working after a panic
	s.NoError(s.b.Run(context.Background(), func(context.Context) error { return nil }))
}

func (s *BridgeTests) TestDoReturnsValue() {
	v, err := bridge.Do(context.Background(), s.b, func(context.Context) (int, error) {
		return 42, nil
	})
	s.NoError(err)
	s.Equal(42, v)
}

func (s *BridgeTests) TestRunPassesContext() {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "value")
	got, err := bridge.Do(ctx, s.b, func(ctx context.Context) (any, error) {
		return ctx.Value(key{}), nil
	})
	s.NoError(err)
	s.Equal("value", got)
}

func (s *BridgeTests) TestConcurrentCallersAllComplete() {
	var (
		wg    sync.WaitGroup
		count atomic.Int64
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.b.Run(context.Background(), func(context.Context) error {
				count.Add(1)
				return nil
			}))
		}()
	}
	wg.Wait()
	s.EqualValues(50, count.Load())
	s.Equal(2, s.b.Cap())
}

func TestBridge(t *testing.T) {
	suite.Run(t, new(BridgeTests))
}

func TestRunAfterClose(t *testing.T) {
	b, err := bridge.New(1, nil)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	err = b.Run(context.Background(), func(context.Context) error { return nil })
	var dfcErr dfc.Error
	require.ErrorAs(t, err, &dfcErr)
	assert.Equal(t, dfc.ErrorInternal, dfcErr.Code)
}
