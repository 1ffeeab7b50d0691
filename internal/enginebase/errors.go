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

package enginebase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"unicode/utf8"

	"github.com/apache/arrow-datafusion-c/go/dfc"
)

// ErrorHelper builds dfc.Error values tagged with the engine name.
type ErrorHelper struct {
	EngineName string
}

func (helper *ErrorHelper) Errorf(code dfc.ErrorCode, message string, format ...any) error {
	msg := fmt.Sprintf(message, format...)
	if helper.EngineName != "" {
		msg = fmt.Sprintf("[%s] %s", helper.EngineName, msg)
	}
	return dfc.Error{Code: code, Msg: msg}
}

// Wrap categorizes an error that did not come from the engine itself.
// Errors that already are a dfc.Error keep their code.
func (helper *ErrorHelper) Wrap(code dfc.ErrorCode, err error, context string) error {
	if err == nil {
		return nil
	}
	var dfcErr dfc.Error
	if errors.As(err, &dfcErr) {
		return dfcErr
	}
	return helper.Errorf(code, "%s: %s", context, err.Error())
}

// IOError categorizes file system failures as ErrorIO and anything else
// as ErrorExternal.
func (helper *ErrorHelper) IOError(err error, context string) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return helper.Wrap(dfc.ErrorIO, err, context)
	}
	return helper.Wrap(dfc.ErrorExternal, err, context)
}

// ContextError categorizes a context cancellation or deadline.
func (helper *ErrorHelper) ContextError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return helper.Errorf(dfc.ErrorResourcesExhausted, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return helper.Errorf(dfc.ErrorExecution, "operation was cancelled")
	}
	return err
}

// CheckUTF8 reports ErrorExternal for strings that are not valid UTF-8.
func (helper *ErrorHelper) CheckUTF8(what, s string) error {
	if !utf8.ValidString(s) {
		return helper.Errorf(dfc.ErrorExternal, "%s is not valid UTF-8", what)
	}
	return nil
}
