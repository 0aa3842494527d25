// Package tassert provides common asserts for tests
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package tassert

import (
	"fmt"
	"testing"
)

func CheckFatal(tb testing.TB, err error) {
	if err != nil {
		tb.Helper()
		tb.Fatalf("unexpected error: %v", err)
	}
}

func CheckError(tb testing.TB, err error) {
	if err != nil {
		tb.Helper()
		tb.Errorf("unexpected error: %v", err)
	}
}

func Errorf(tb testing.TB, cond bool, format string, a ...interface{}) {
	if !cond {
		tb.Helper()
		tb.Errorf(format, a...)
	}
}

func Fatalf(tb testing.TB, cond bool, format string, a ...interface{}) {
	if !cond {
		tb.Helper()
		tb.Fatal(fmt.Sprintf(format, a...))
	}
}
