package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestTranslateKey(t *testing.T) {
	assert.Equal(t, core.KEY_W, TranslateKey(glfw.KeyW))
	assert.Equal(t, core.KEY_SHIFT, TranslateKey(glfw.KeyLeftShift))
	assert.Equal(t, core.KEY_SHIFT, TranslateKey(glfw.KeyRightShift))
	assert.Equal(t, core.KEY_ESCAPE, TranslateKey(glfw.KeyEscape))
	assert.Equal(t, core.KEY_UNKNOWN, TranslateKey(glfw.KeyKP9))
}

func TestTranslateButton(t *testing.T) {
	b, ok := TranslateButton(glfw.MouseButtonRight)
	assert.True(t, ok)
	assert.Equal(t, core.BUTTON_RIGHT, b)

	_, ok = TranslateButton(glfw.MouseButton5)
	assert.False(t, ok)
}
