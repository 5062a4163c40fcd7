package pipeline

import (
	"fmt"

	"github.com/khaledhikmat/handpose-go/service/config"
	"github.com/khaledhikmat/handpose-go/service/data"
	"github.com/khaledhikmat/handpose-go/service/imaging"
	"github.com/khaledhikmat/handpose-go/service/pose"
	"github.com/khaledhikmat/handpose-go/service/storage"
	"github.com/khaledhikmat/handpose-go/service/watch"
)

type ServicesFactory struct {
	CfgSvc     config.IService
	DataSvc    data.IService
	WatchSvc   watch.IService
	StorageSvc storage.IService
	PoseSvc    pose.IService
	ImagingSvc imaging.IService
}

// StepError names the processing step a frame failed in.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

const (
	StepParse   = "parse"
	StepDecode  = "decode"
	StepClock   = "clock"
	StepDetect  = "detect"
	StepJournal = "journal"
	StepEncode  = "encode"
	StepStore   = "store"
	StepRemove  = "remove"
)
