package forecaster

import (
	"fmt"
	"time"

	"github.com/dashcast/dashcast/timedataset"
)

func ExampleForecaster() {
	t := timedataset.GenerateMonthlyT(24, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	y := make([]float64, len(t))
	for i := range y {
		y[i] = 100.0 + 5.0*float64(i)
	}

	f, err := New(nil)
	if err != nil {
		panic(err)
	}
	if err := f.Fit(t, y); err != nil {
		panic(err)
	}

	future := timedataset.NextMonthEnds(f.TrainEndTime(), 3)
	res, err := f.Predict(future)
	if err != nil {
		panic(err)
	}
	for i, tPnt := range res.T {
		fmt.Printf("%s %t\n", tPnt.Format(time.DateOnly), res.Lower[i] <= res.Forecast[i] && res.Forecast[i] <= res.Upper[i])
	}
	// Output:
	// 2024-01-31 true
	// 2024-02-29 true
	// 2024-03-31 true
}
