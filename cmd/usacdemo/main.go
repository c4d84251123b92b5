// Command usacdemo runs a single robust-estimation problem against
// synthetic homography correspondences and prints a summary of the winning
// model: inlier count, elapsed time, and (when SPRT verification was
// enabled) the number of test designs the verifier adapted through with the
// mean and variance of their epsilon.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/fatih/color"
	"github.com/golang/geo/r2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cast"
	"github.com/urfave/cli/v2"

	"go.viam.com/usac/logging"
	usac "go.viam.com/usac/usac"
)

func main() {
	app := &cli.App{
		Name:  "usacdemo",
		Usage: "run a USAC homography estimation against synthetic correspondences",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "points", Value: 500, Usage: "number of correspondences to generate"},
			&cli.Float64Flag{Name: "outliers", Value: 0.3, Usage: "fraction of correspondences replaced with outliers"},
			&cli.Float64Flag{Name: "threshold", Value: 2.0, Usage: "inlier reprojection error threshold"},
			&cli.Float64Flag{Name: "confidence", Value: 0.99, Usage: "termination confidence"},
			&cli.IntFlag{Name: "max-iterations", Value: 10000},
			&cli.IntFlag{Name: "threads", Value: 1, Usage: "worker count; >1 runs the parallel controller"},
			&cli.IntFlag{Name: "seed", Value: 1},
			&cli.BoolFlag{Name: "sprt", Usage: "enable SPRT preemptive verification"},
			&cli.StringFlag{Name: "seed-env", Usage: "environment variable to read the seed from instead of --seed"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		color.Red("usacdemo: %v", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	numPoints := c.Int("points")
	outlierFraction := c.Float64("outliers")
	threshold := c.Float64("threshold")
	confidence := c.Float64("confidence")
	maxIterations := c.Int("max-iterations")
	threads := c.Int("threads")
	seed := c.Int("seed")

	// A demo convenience: an operator can override the seed via an
	// environment variable without the CLI needing a typed flag for every
	// possible source, using cast to coerce whatever string comes back.
	if envName := c.String("seed-env"); envName != "" {
		if v, ok := os.LookupEnv(envName); ok {
			seed = cast.ToInt(v)
		}
	}

	points := syntheticPoints(numPoints, outlierFraction, seed)
	logger := logging.NewDevelopment("usacdemo")

	params := usac.NewParams(usac.Homography, usac.UniformSampling, usac.RansacScore, threshold, confidence, maxIterations).
		SetNumThreads(threads).
		SetSeed(seed)

	errFn := newReprojectionError(points)
	quality := usac.NewRansacQuality(points, errFn, threshold)
	sampler := usac.NewUniformSampler(seed, params.SampleSize(), points.Len())
	termination := usac.NewStandardTermination(confidence, params.SampleSize(), maxIterations)
	degeneracy := usac.NewHomographyDegeneracy(points)

	var verifier usac.Verifier = usac.NewNullVerifier()
	if c.Bool("sprt") {
		params.SetVerifier(usac.SprtVerification)
		verifier = usac.NewSPRTScoreRansac(points, errFn, threshold, 0.05, 0.01, 100, 100, seed, logger)
	}

	r := usac.NewRansac(points, params, homographyDLTSolver{}, quality, sampler, termination, verifier, degeneracy, nil, nil, logger)

	var out *usac.RansacOutput
	var err error
	if threads > 1 {
		out, err = r.RunParallel(context.Background())
	} else {
		out, err = r.Run(context.Background())
	}
	if err != nil {
		return err
	}

	printSummary(c, out, numPoints)
	return nil
}

func printSummary(c *cli.Context, out *usac.RansacOutput, numPoints int) {
	if out.Score.InlierCount*2 >= numPoints {
		color.Green("estimation succeeded: %d/%d inliers", out.Score.InlierCount, numPoints)
	} else {
		color.Yellow("estimation weak: %d/%d inliers", out.Score.InlierCount, numPoints)
	}

	t := table.NewWriter()
	t.SetOutputMirror(c.App.Writer)
	t.AppendHeader(table.Row{"metric", "value"})
	t.AppendRow(table.Row{"inliers", out.Score.InlierCount})
	t.AppendRow(table.Row{"cost", out.Score.Cost})
	t.AppendRow(table.Row{"iterations", out.Iterations})
	t.AppendRow(table.Row{"models estimated", out.NumberOfEstimatedModels})
	t.AppendRow(table.Row{"models good", out.NumberOfGoodModels})
	t.AppendRow(table.Row{"elapsed (ms)", fmt.Sprintf("%.2f", out.Milliseconds())})
	t.Render()

	if summary, err := out.SummarizeSprtHistory(); err == nil && summary.NumTestDesigns > 0 {
		sprtTable := table.NewWriter()
		sprtTable.SetOutputMirror(c.App.Writer)
		sprtTable.AppendHeader(table.Row{"sprt test designs", "mean epsilon", "variance"})
		sprtTable.AppendRow(table.Row{summary.NumTestDesigns, fmt.Sprintf("%.4f", summary.MeanEpsilon), fmt.Sprintf("%.6f", summary.VarianceEpsilon)})
		sprtTable.Render()
	}

	inliers := out.Inliers()
	sample := lo.Subset(inliers, 0, 5)
	fmt.Fprintf(c.App.Writer, "first inlier indices: %v\n", sample)
}

func syntheticPoints(n int, outlierFraction float64, seed int) *usac.PointSet {
	rng := rand.New(rand.NewSource(int64(seed))) //nolint:gosec
	h := [9]float64{1.2, 0.1, 5, -0.05, 0.9, -3, 0.0005, 0.0002, 1}
	apply := func(x, y float64) (float64, float64) {
		w := h[6]*x + h[7]*y + h[8]
		return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w
	}

	pts1 := make([]r2.Point, n)
	pts2 := make([]r2.Point, n)
	for i := 0; i < n; i++ {
		x, y := rng.Float64()*100, rng.Float64()*100
		pts1[i] = r2.Point{X: x, Y: y}
		if rng.Float64() < outlierFraction {
			pts2[i] = r2.Point{X: rng.Float64() * 100, Y: rng.Float64() * 100}
			continue
		}
		xp, yp := apply(x, y)
		pts2[i] = r2.Point{X: xp, Y: yp}
	}

	points, err := usac.NewPointSet2D(pts1, pts2)
	if err != nil {
		panic(err)
	}
	return points
}
