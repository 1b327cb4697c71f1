package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestYesNo(t *testing.T) {
	assert.True(t, IsYes("yes"))
	assert.True(t, IsYes("Yes please"))
	assert.True(t, IsYes("نعم"))
	assert.True(t, IsYes("ايوه"))
	assert.False(t, IsYes("no"))

	assert.True(t, IsNo("no"))
	assert.True(t, IsNo("that's enough"))
	assert.True(t, IsNo("لا شكرا"))
	assert.True(t, IsNo("خلاص"))
	assert.False(t, IsNo("yes"))
}

func TestIsBack(t *testing.T) {
	assert.True(t, IsBack("back"))
	assert.True(t, IsBack("go back"))
	assert.True(t, IsBack("رجوع"))
	assert.True(t, IsBack("ارجع"))
	assert.False(t, IsBack("latte"))
}

func TestIsCancel(t *testing.T) {
	assert.True(t, IsCancel("cancel"))
	assert.True(t, IsCancel("الغاء"))
	assert.False(t, IsCancel("continue"))
}

func TestIsGreeting(t *testing.T) {
	assert.True(t, IsGreeting("hi"))
	assert.True(t, IsGreeting("Hello!"))
	assert.True(t, IsGreeting("مرحبا"))
	assert.True(t, IsGreeting("السلام عليكم"))
	assert.True(t, IsGreeting("good morning"))

	// long sentences are not session-reset greetings
	assert.False(t, IsGreeting("hi i would like two lattes and an espresso please"))
	assert.False(t, IsGreeting("latte"))
	assert.False(t, IsGreeting(""))
}

func TestDetectService(t *testing.T) {
	svc, ok := DetectService("delivery please")
	assert.True(t, ok)
	assert.Equal(t, "delivery", svc)

	svc, ok = DetectService("توصيل")
	assert.True(t, ok)
	assert.Equal(t, "delivery", svc)

	svc, ok = DetectService("dine in")
	assert.True(t, ok)
	assert.Equal(t, "dine_in", svc)

	svc, ok = DetectService("على طاولة")
	assert.True(t, ok)
	assert.Equal(t, "dine_in", svc)

	_, ok = DetectService("latte")
	assert.False(t, ok)
}
