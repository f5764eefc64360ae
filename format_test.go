package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.0 KB", formatSize(1024))
	assert.Equal(t, "1.5 MB", formatSize(1572864))
	assert.Equal(t, "2.0 GB", formatSize(2147483648))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "-", formatTime(time.Time{}))

	sameYear := time.Date(time.Now().Year(), time.March, 2, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "Mar  2 15:04", formatTime(sameYear))

	otherYear := time.Date(2019, time.March, 2, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "Mar  2  2019", formatTime(otherYear))
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/u")

	assert.Equal(t, "/home/u/saves", expandHome("~/saves"))
	assert.Equal(t, "/home/u", expandHome("~"))
	assert.Equal(t, "/abs/path", expandHome("/abs/path"))
	assert.Equal(t, "relative", expandHome("relative"))
}
