package main

// Blank-importing every node package registers its executors with
// plugin.Register via each package's init(). Kept as one file so the
// registration set is visible at a glance rather than scattered across
// main.go/run.go.
import (
	_ "github.com/flowloom/rivulet/nodes/agent"
	_ "github.com/flowloom/rivulet/nodes/branch"
	_ "github.com/flowloom/rivulet/nodes/code"
	_ "github.com/flowloom/rivulet/nodes/condition"
	_ "github.com/flowloom/rivulet/nodes/delay"
	_ "github.com/flowloom/rivulet/nodes/end"
	_ "github.com/flowloom/rivulet/nodes/files"
	_ "github.com/flowloom/rivulet/nodes/fs"
	_ "github.com/flowloom/rivulet/nodes/http"
	_ "github.com/flowloom/rivulet/nodes/image"
	_ "github.com/flowloom/rivulet/nodes/llm"
	_ "github.com/flowloom/rivulet/nodes/merge"
	_ "github.com/flowloom/rivulet/nodes/python"
	_ "github.com/flowloom/rivulet/nodes/start"
	_ "github.com/flowloom/rivulet/nodes/transform"
	_ "github.com/flowloom/rivulet/nodes/tts"
)
