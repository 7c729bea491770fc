package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ib-77/railyard/pkg/providers"
	"github.com/ib-77/railyard/pkg/rop"
)

var errMissingInput = errors.New("job has no input for its kind")

// Job is one entry of a jobs file. Exactly the section matching Kind is used.
type Job struct {
	ID       string        `yaml:"id"`
	Kind     string        `yaml:"kind"`
	Lane     string        `yaml:"lane"`
	Timeout  time.Duration `yaml:"timeout"`
	Deadline time.Time     `yaml:"deadline"`

	Socket  *providers.SocketRequest `yaml:"socket"`
	Matrix  *providers.Matrix        `yaml:"matrix"`
	File    *providers.FileRequest   `yaml:"file"`
	Message *providers.Message       `yaml:"message"`
}

type jobFile struct {
	Jobs []Job `yaml:"jobs"`
}

func (j Job) WorkItem() (rop.WorkItem, error) {
	item := rop.WorkItem{
		ID:       j.ID,
		Kind:     j.Kind,
		Timeout:  j.Timeout,
		Deadline: j.Deadline,
	}

	switch j.Lane {
	case "", "io":
	case "cpu":
		item.Lane = rop.LaneCPU
	default:
		return item, fmt.Errorf("job %q: unknown lane %q", j.ID, j.Lane)
	}

	switch {
	case j.Kind == providers.KindSocket && j.Socket != nil:
		item.Input = *j.Socket
	case j.Kind == providers.KindMatrix && j.Matrix != nil:
		item.Input = *j.Matrix
	case j.Kind == providers.KindFile && j.File != nil:
		item.Input = *j.File
	case j.Kind == providers.KindMessage && j.Message != nil:
		item.Input = *j.Message
	default:
		return item, fmt.Errorf("job %q (%s): %w", j.ID, j.Kind, errMissingInput)
	}

	return item, nil
}

func parseJobs(data []byte) ([]rop.WorkItem, error) {
	var f jobFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse jobs: %w", err)
	}

	items := make([]rop.WorkItem, 0, len(f.Jobs))
	for _, j := range f.Jobs {
		item, err := j.WorkItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func loadJobs(path string) ([]rop.WorkItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseJobs(data)
}
