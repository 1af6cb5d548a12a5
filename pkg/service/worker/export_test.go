package worker

// LaneIndex exposes lane selection for tests
var LaneIndex = (*Pool).laneIndex
