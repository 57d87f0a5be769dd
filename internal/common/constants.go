package common

import "time"

// HTTP service
const CLIENT_PORT = 8080
const TRAIN_ROUND_ROUTE = "/round/train"
const ROUND_SUMMARY_ROUTE = "/round/{roundId}"
const READ_HEADER_TIMEOUT = 10 * time.Second
const SHUTDOWN_TIMEOUT = 30 * time.Second

// Results
const RESULTS_FOLDER = "../../experiments/results"
const LOG_FOLDER = "log"

// Round defaults
const DEFAULT_BATCH_SIZE = 10
const DEFAULT_LOCAL_EPOCHS = 11
const DEFAULT_HEAD_EPOCHS = 10
const DEFAULT_LEARNING_RATE = 0.01
const DEFAULT_LOCAL_UPDATES = 1000000000
const DEFAULT_LAM = 1.0

// DA-PFL learning rate decay per epoch
const LR_DECAY_GAMMA = 0.9

// Events
const ROUND_FINISHED_EVENT_TYPE = "RoundFinished"
const SIMULATION_FINISHED_EVENT_TYPE = "SimulationFinished"

// Convergence
const CONVERGENCE_WINDOW = 3
const CONVERGENCE_THRESHOLD = 0.005
