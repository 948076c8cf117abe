package config

type WorkerKeyStruct struct {
	ArchiveSnapshotsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	ArchiveSnapshotsQueue: "archive_snapshots_queue",
}
