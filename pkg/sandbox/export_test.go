package sandbox

// WorkerGrace exposes the kill grace period to the external tests.
const WorkerGrace = workerGrace
