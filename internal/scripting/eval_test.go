// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package scripting

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// memCaller is a minimal in-memory stand-in for the real dispatcher,
// enough to exercise GET/SET/INCR through call().
func memCaller(store map[string]string) Caller {
	return func(cmd string, args []string) (string, error) {
		switch cmd {
		case "SET":
			if len(args) != 2 {
				return "", fmt.Errorf("wrong number of arguments")
			}
			store[args[0]] = args[1]
			return "OK", nil
		case "GET":
			if len(args) != 1 {
				return "", fmt.Errorf("wrong number of arguments")
			}
			return store[args[0]], nil
		case "INCR":
			if len(args) != 1 {
				return "", fmt.Errorf("wrong number of arguments")
			}
			store[args[0]] = "1"
			return store[args[0]], nil
		default:
			return "", fmt.Errorf("unsupported")
		}
	}
}

func TestEvalReturnsLiteral(t *testing.T) {
	out, err := Eval(`"hello"`, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestEvalUsesKeysAndArgv(t *testing.T) {
	out, err := Eval(`KEYS[0] + "=" + ARGV[0]`, []string{"mykey"}, []string{"myval"}, nil)
	require.NoError(t, err)
	require.Equal(t, "mykey=myval", out)
}

func TestEvalCallsAllowedCommand(t *testing.T) {
	store := map[string]string{}
	out, err := Eval(`call("SET", "k", "v")`, nil, nil, memCaller(store))
	require.NoError(t, err)
	require.Equal(t, "OK", out)
	require.Equal(t, "v", store["k"])

	out, err = Eval(`call("GET", "k")`, nil, nil, memCaller(store))
	require.NoError(t, err)
	require.Equal(t, "v", out)
}

func TestEvalRejectsDisallowedCommand(t *testing.T) {
	store := map[string]string{}
	_, err := Eval(`call("FLUSHALL")`, nil, nil, memCaller(store))
	require.Error(t, err)
}

func TestEvalCompileErrorIsReturnedNotPanicked(t *testing.T) {
	_, err := Eval(`this is not valid expr syntax (((`, nil, nil, nil)
	require.Error(t, err)
}

func TestEvalIntegerCoercion(t *testing.T) {
	out, err := Eval(`1 + 2`, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "3", out)
}
