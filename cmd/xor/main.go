package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/FlavioCFOliveira/GoLayers/internal/activations"
	"github.com/FlavioCFOliveira/GoLayers/internal/array"
	"github.com/FlavioCFOliveira/GoLayers/internal/layer"
	"github.com/FlavioCFOliveira/GoLayers/internal/loss"
	"github.com/FlavioCFOliveira/GoLayers/internal/ndarray"
	"github.com/FlavioCFOliveira/GoLayers/internal/net"
	"github.com/FlavioCFOliveira/GoLayers/internal/opt"
	"github.com/FlavioCFOliveira/GoLayers/internal/params"
)

func main() {
	epochs := flag.Int("epochs", 2000, "training epochs")
	hidden := flag.Int("hidden", 4, "hidden layer size")
	lr := flag.Float64("lr", 0.1, "learning rate")
	method := flag.String("opt", "adam", "update method: sgd or adam")
	momentum := flag.Float64("momentum", 0.9, "SGD momentum")
	lossName := flag.String("loss", "mse", fmt.Sprintf("loss function %v", loss.Names()))
	hiddenAct := flag.String("act", "tanh", fmt.Sprintf("hidden activation %v", activations.Names()))
	seed := flag.Int64("seed", 42, "initialization seed")
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("xor: ")

	lossFn, err := loss.ByName(*lossName)
	if err != nil {
		log.Fatal(err)
	}
	act, err := activations.ByName(*hiddenAct)
	if err != nil {
		log.Fatal(err)
	}

	// 2 inputs -> hidden -> 1 sigmoid output
	x := array.NewAugmented(2, nil)
	h := array.NewAugmented(*hidden, act)
	y := array.NewAugmented(1, activations.Sigmoid{})

	glorot := params.NewGlorot(*seed)
	p1 := layer.NewAffineParams([]int{2}, *hidden)
	p1.Initialize(glorot)
	p2 := layer.NewAffineParams([]int{*hidden}, 1)
	p2.Initialize(glorot)

	l1, err := layer.NewFeedforward(x, h, p1)
	if err != nil {
		log.Fatal(err)
	}
	l2, err := layer.NewFeedforward(h, y, p2)
	if err != nil {
		log.Fatal(err)
	}
	network, err := net.New(l1, l2)
	if err != nil {
		log.Fatal(err)
	}
	if err := network.Summary(os.Stdout); err != nil {
		log.Fatal(err)
	}

	var update opt.UpdateMethod
	switch *method {
	case "sgd":
		update = opt.NewSGDMomentum(*lr, *momentum)
	case "adam":
		update = opt.NewAdam(*lr)
	default:
		log.Fatalf("unknown update method %q", *method)
	}
	optimizer := opt.NewParamsOptimizer(network.Params(), update, opt.WithAverage())
	scheduler := opt.NewReduceLROnPlateau(update, 0.5, 200, 1e-5, 1e-4)

	trainX := []*ndarray.Dense{
		ndarray.NewVector(0, 0),
		ndarray.NewVector(0, 1),
		ndarray.NewVector(1, 0),
		ndarray.NewVector(1, 1),
	}
	trainY := []*ndarray.Dense{
		ndarray.NewVector(0),
		ndarray.NewVector(1),
		ndarray.NewVector(1),
		ndarray.NewVector(0),
	}

	for epoch := 0; epoch < *epochs; epoch++ {
		totalLoss := 0.0
		for i := range trainX {
			out, err := network.Predict(trainX[i])
			if err != nil {
				log.Fatal(err)
			}
			l, err := lossFn.Loss(out, trainY[i])
			if err != nil {
				log.Fatal(err)
			}
			totalLoss += l

			errs, err := lossFn.Errors(out, trainY[i])
			if err != nil {
				log.Fatal(err)
			}
			if err := network.Backward(errs, false); err != nil {
				log.Fatal(err)
			}
			if err := optimizer.Accumulate(network.ParamsErrors()); err != nil {
				log.Fatal(err)
			}
		}
		if _, err := optimizer.Update(); err != nil {
			log.Fatal(err)
		}

		avg := totalLoss / float64(len(trainX))
		scheduler.StepWithLoss(avg)
		if epoch%500 == 0 {
			fmt.Printf("Epoch %d, Loss: %.6f, LR: %g\n", epoch, avg, scheduler.LR())
		}
	}

	fmt.Println("\nTesting trained network:")
	for i := range trainX {
		pred, err := network.Predict(trainX[i])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Input: %v, Predicted: %.4f, Target: %v\n", trainX[i].Data(), pred.AtVec(0), trainY[i].AtVec(0))
	}
}
