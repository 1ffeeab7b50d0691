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

package duckdb

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/apache/arrow-datafusion-c/go/dfc"
	"github.com/marcboeker/go-duckdb/mapping"
	goduckdb "github.com/marcboeker/go-duckdb/v2"
)

// errorTypeDecimal is the engine's own code for DECIMAL errors.
// goduckdb.ErrorTypeDecimal carries the DECIMAL logical type id instead,
// which collides with ErrorTypeIndex.
const errorTypeDecimal = goduckdb.ErrorType(mapping.ErrorTypeDecimal)

var errorTypeCodes = map[goduckdb.ErrorType]dfc.ErrorCode{
	goduckdb.ErrorTypeParser: dfc.ErrorSQL,
	goduckdb.ErrorTypeSyntax: dfc.ErrorSQL,

	goduckdb.ErrorTypeCatalog:              dfc.ErrorPlan,
	goduckdb.ErrorTypeBinder:               dfc.ErrorPlan,
	goduckdb.ErrorTypePlanner:              dfc.ErrorPlan,
	goduckdb.ErrorTypeOptimizer:            dfc.ErrorPlan,
	goduckdb.ErrorTypeExpression:           dfc.ErrorPlan,
	goduckdb.ErrorTypeMismatchType:         dfc.ErrorPlan,
	goduckdb.ErrorTypeUnknownType:          dfc.ErrorPlan,
	goduckdb.ErrorTypeInvalidType:          dfc.ErrorPlan,
	goduckdb.ErrorTypeParameterNotResolved: dfc.ErrorPlan,
	goduckdb.ErrorTypeParameterNotAllowed:  dfc.ErrorPlan,
	goduckdb.ErrorTypeDependency:           dfc.ErrorPlan,
	goduckdb.ErrorTypeInvalidConfiguration: dfc.ErrorConfiguration,
	goduckdb.ErrorTypeSettings:             dfc.ErrorConfiguration,

	goduckdb.ErrorTypeConversion:   dfc.ErrorArrow,
	goduckdb.ErrorTypeOutOfRange:   dfc.ErrorArrow,
	errorTypeDecimal:               dfc.ErrorArrow,
	goduckdb.ErrorTypeDivideByZero: dfc.ErrorArrow,

	goduckdb.ErrorTypeIO:         dfc.ErrorIO,
	goduckdb.ErrorTypePermission: dfc.ErrorIO,

	goduckdb.ErrorTypeNetwork: dfc.ErrorObjectStore,
	goduckdb.ErrorTypeHTTP:    dfc.ErrorObjectStore,

	goduckdb.ErrorTypeOutOfMemory: dfc.ErrorResourcesExhausted,
	goduckdb.ErrorTypeObjectSize:  dfc.ErrorResourcesExhausted,

	goduckdb.ErrorTypeNotImplemented:   dfc.ErrorNotImplemented,
	goduckdb.ErrorTypeMissingExtension: dfc.ErrorNotImplemented,
	goduckdb.ErrorTypeAutoLoad:         dfc.ErrorNotImplemented,

	goduckdb.ErrorTypeInternal:      dfc.ErrorInternal,
	goduckdb.ErrorTypeFatal:         dfc.ErrorInternal,
	goduckdb.ErrorTypeNullPointer:   dfc.ErrorInternal,
	goduckdb.ErrorTypeStat:          dfc.ErrorInternal,
	goduckdb.ErrorTypeSerialization: dfc.ErrorInternal,

	goduckdb.ErrorTypeScheduler:    dfc.ErrorExecution,
	goduckdb.ErrorTypeExecutor:     dfc.ErrorExecution,
	goduckdb.ErrorTypeConstraint:   dfc.ErrorExecution,
	goduckdb.ErrorTypeIndex:        dfc.ErrorExecution,
	goduckdb.ErrorTypeTransaction:  dfc.ErrorExecution,
	goduckdb.ErrorTypeInterrupt:    dfc.ErrorExecution,
	goduckdb.ErrorTypeSequence:     dfc.ErrorExecution,
	goduckdb.ErrorTypeConnection:   dfc.ErrorExecution,
	goduckdb.ErrorTypeInvalidInput: dfc.ErrorExecution,

	goduckdb.ErrorTypeInvalid: dfc.ErrorExternal,
}

// errorPrefixes classifies errors that only arrive as text, such as
// the ones raised while executing an Arrow query. The keys are the
// exception names the engine puts in front of every message.
var errorPrefixes = map[string]goduckdb.ErrorType{
	"Invalid Error":                goduckdb.ErrorTypeInvalid,
	"Out of Range Error":           goduckdb.ErrorTypeOutOfRange,
	"Conversion Error":             goduckdb.ErrorTypeConversion,
	"Decimal Error":                errorTypeDecimal,
	"Mismatch Type Error":          goduckdb.ErrorTypeMismatchType,
	"Divide by Zero Error":         goduckdb.ErrorTypeDivideByZero,
	"Object Size Error":            goduckdb.ErrorTypeObjectSize,
	"Invalid type Error":           goduckdb.ErrorTypeInvalidType,
	"Serialization Error":          goduckdb.ErrorTypeSerialization,
	"TransactionContext Error":     goduckdb.ErrorTypeTransaction,
	"Not implemented Error":        goduckdb.ErrorTypeNotImplemented,
	"Expression Error":             goduckdb.ErrorTypeExpression,
	"Catalog Error":                goduckdb.ErrorTypeCatalog,
	"Parser Error":                 goduckdb.ErrorTypeParser,
	"Planner Error":                goduckdb.ErrorTypePlanner,
	"Scheduler Error":              goduckdb.ErrorTypeScheduler,
	"Executor Error":               goduckdb.ErrorTypeExecutor,
	"Constraint Error":             goduckdb.ErrorTypeConstraint,
	"Index Error":                  goduckdb.ErrorTypeIndex,
	"Stat Error":                   goduckdb.ErrorTypeStat,
	"Connection Error":             goduckdb.ErrorTypeConnection,
	"Syntax Error":                 goduckdb.ErrorTypeSyntax,
	"Settings Error":               goduckdb.ErrorTypeSettings,
	"Binder Error":                 goduckdb.ErrorTypeBinder,
	"Network Error":                goduckdb.ErrorTypeNetwork,
	"Optimizer Error":              goduckdb.ErrorTypeOptimizer,
	"NullPointer Error":            goduckdb.ErrorTypeNullPointer,
	"IO Error":                     goduckdb.ErrorTypeIO,
	"INTERRUPT Error":              goduckdb.ErrorTypeInterrupt,
	"FATAL Error":                  goduckdb.ErrorTypeFatal,
	"INTERNAL Error":               goduckdb.ErrorTypeInternal,
	"Invalid Input Error":          goduckdb.ErrorTypeInvalidInput,
	"Out of Memory Error":          goduckdb.ErrorTypeOutOfMemory,
	"Permission Error":             goduckdb.ErrorTypePermission,
	"Parameter Not Resolved Error": goduckdb.ErrorTypeParameterNotResolved,
	"Parameter Not Allowed Error":  goduckdb.ErrorTypeParameterNotAllowed,
	"Dependency Error":             goduckdb.ErrorTypeDependency,
	"HTTP Error":                   goduckdb.ErrorTypeHTTP,
	"Missing Extension Error":      goduckdb.ErrorTypeMissingExtension,
	"Extension Autoloading Error":  goduckdb.ErrorTypeAutoLoad,
	"Sequence Error":               goduckdb.ErrorTypeSequence,
	"Invalid Configuration Error":  goduckdb.ErrorTypeInvalidConfiguration,
}

// arrowExecPrefix is put in front of engine messages by the Arrow
// query path.
const arrowExecPrefix = "failed to execute the prepared arrow: "

// classifyMessage returns the engine error type named at the start of
// msg.
func classifyMessage(msg string) (goduckdb.ErrorType, bool) {
	prefix, _, ok := strings.Cut(msg, ": ")
	if !ok {
		return 0, false
	}
	typ, ok := errorPrefixes[prefix]
	return typ, ok
}

// translateError maps an error raised by the engine into a dfc.Error.
// Errors that already carry a code pass through unchanged.
func (e *Engine) translateError(err error, op string) error {
	if err == nil {
		return nil
	}

	var dfErr dfc.Error
	if errors.As(err, &dfErr) {
		return dfErr
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return e.ErrorHelper.ContextError(err)
	}

	var duckErr *goduckdb.Error
	if errors.As(err, &duckErr) {
		typ := duckErr.Type
		// messages parsed by the driver report DECIMAL errors as 19
		if fromMsg, ok := classifyMessage(duckErr.Msg); ok && fromMsg == errorTypeDecimal {
			typ = errorTypeDecimal
		}
		return e.codeError(typ, duckErr.Msg, op)
	}

	if msg, ok := strings.CutPrefix(err.Error(), arrowExecPrefix); ok {
		if typ, ok := classifyMessage(msg); ok {
			return e.codeError(typ, msg, op)
		}
		return e.ErrorHelper.Errorf(dfc.ErrorExecution, "%s: %s", op, msg)
	}

	return e.ErrorHelper.Wrap(dfc.ErrorExternal, err, op)
}

func (e *Engine) codeError(typ goduckdb.ErrorType, msg, op string) dfc.Error {
	code, ok := errorTypeCodes[typ]
	if !ok {
		e.Logger.Warn("unmapped engine error type",
			slog.Int("type", int(typ)),
			slog.String("op", op))
		code = dfc.ErrorInternal
	}
	return dfc.Error{
		Code:    code,
		Msg:     msg,
		Details: map[string]string{"operation": op},
	}
}
