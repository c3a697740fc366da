package config

// Application constants
const (
	AppName = "AB Pulse"

	DefaultDatasetSource   = "data/A_B_testing_dataset.csv"
	DefaultPreviewRows     = 5
	DefaultLogLevel        = "info"
	DefaultChartAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"
)
