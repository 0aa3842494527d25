//go:build !debug
// +build !debug

// Package debug provides assertions and debug-only logging that compile away
// unless the `debug` build tag is set.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package debug

const Enabled = false

func Assert(bool)                          {}
func AssertMsg(bool, string)               {}
func Assertf(bool, string, ...interface{}) {}
func AssertNoErr(error)                    {}
func Infof(string, ...interface{})         {}
