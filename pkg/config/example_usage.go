package config

// Example usage of the configuration system:
//
// 1. Load configuration with all sources:
//
//     config, err := config.Load("", nil)
//     if err != nil {
//         log.Fatal(err)
//     }
//
// 2. Load with custom config file:
//
//     config, err := config.Load("/path/to/config.yaml", nil)
//     if err != nil {
//         log.Fatal(err)
//     }
//
// 3. Load with command line flags:
//
//     flags := map[string]interface{}{
//         "output":    "./manuscripts",
//         "size":      "max",
//         "resume":    true,
//         "log-level": "debug",
//     }
//     config, err := config.Load("", flags)
//     if err != nil {
//         log.Fatal(err)
//     }
//
// 4. Programmatic configuration:
//
//     config := config.DefaultConfig()
//     config.Output.Directory = "/data/manuscripts"
//     config.RateLimit.Mode = config.RateModeFixedDelay
//     config.RateLimit.FixedDelay = 2 * time.Second
//
//     if err := config.Validate(); err != nil {
//         log.Fatal(err)
//     }
//
// 5. Save configuration to file:
//
//     if err := config.Save(".iiifdl.yaml"); err != nil {
//         log.Fatal(err)
//     }
//
// 6. Environment variables:
//
//     export IIIFDL_OUTPUT_DIR="./downloads"
//     export IIIFDL_SIZE="2500"
//     export IIIFDL_RATE_MODE="fixed-rpm"
//     export IIIFDL_REQUESTS_PER_MINUTE="30"
//     export IIIFDL_LOG_LEVEL="debug"
//     export IIIFDL_METRICS_ADDR="127.0.0.1:9090"
