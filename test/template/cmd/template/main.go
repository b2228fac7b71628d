package main

import (
	"context"
	"fmt"

	"github.com/shpitdev/seomerge/pkg/pipeline/core"
	"github.com/shpitdev/seomerge/pkg/pipeline/worker"
	"github.com/shpitdev/seomerge/test/template/processor"
)

func main() {
	p := processor.Processor{}
	runner := core.ProcessFunc[string, processor.Result](p.Process)

	out, err := worker.ProcessAll(context.Background(), []string{"  Running   Shoes "}, runner.Process, worker.Options{Workers: 1})
	if err != nil {
		panic(err)
	}
	fmt.Println(out[0].Output.Output)
}
