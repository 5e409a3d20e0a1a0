package logging

// Convenience helpers per category, mirroring how call sites read:
// logging.Engine("tick %d", n) instead of logging.Get(...).Info(...).

// Boot logs

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

// Engine logs

func Engine(format string, args ...interface{})      { Get(CategoryEngine).Info(format, args...) }
func EngineDebug(format string, args ...interface{}) { Get(CategoryEngine).Debug(format, args...) }
func EngineWarn(format string, args ...interface{})  { Get(CategoryEngine).Warn(format, args...) }
func EngineError(format string, args ...interface{}) { Get(CategoryEngine).Error(format, args...) }

// Action registry logs

func Actions(format string, args ...interface{})      { Get(CategoryActions).Info(format, args...) }
func ActionsDebug(format string, args ...interface{}) { Get(CategoryActions).Debug(format, args...) }
func ActionsWarn(format string, args ...interface{})  { Get(CategoryActions).Warn(format, args...) }
func ActionsError(format string, args ...interface{}) { Get(CategoryActions).Error(format, args...) }

// Bracket routing logs

func Bracket(format string, args ...interface{})      { Get(CategoryBracket).Info(format, args...) }
func BracketDebug(format string, args ...interface{}) { Get(CategoryBracket).Debug(format, args...) }

// Levels logs

func Levels(format string, args ...interface{})      { Get(CategoryLevels).Info(format, args...) }
func LevelsWarn(format string, args ...interface{})  { Get(CategoryLevels).Warn(format, args...) }
func LevelsError(format string, args ...interface{}) { Get(CategoryLevels).Error(format, args...) }

// Memory logs

func Memory(format string, args ...interface{})      { Get(CategoryMemory).Info(format, args...) }
func MemoryWarn(format string, args ...interface{})  { Get(CategoryMemory).Warn(format, args...) }
func MemoryError(format string, args ...interface{}) { Get(CategoryMemory).Error(format, args...) }

// Model API logs

func API(format string, args ...interface{})      { Get(CategoryAPI).Info(format, args...) }
func APIDebug(format string, args ...interface{}) { Get(CategoryAPI).Debug(format, args...) }
func APIWarn(format string, args ...interface{})  { Get(CategoryAPI).Warn(format, args...) }
func APIError(format string, args ...interface{}) { Get(CategoryAPI).Error(format, args...) }

// Speech logs

func Speech(format string, args ...interface{})      { Get(CategorySpeech).Info(format, args...) }
func SpeechWarn(format string, args ...interface{})  { Get(CategorySpeech).Warn(format, args...) }
func SpeechError(format string, args ...interface{}) { Get(CategorySpeech).Error(format, args...) }

// Persona logs

func Persona(format string, args ...interface{})      { Get(CategoryPersona).Info(format, args...) }
func PersonaWarn(format string, args ...interface{})  { Get(CategoryPersona).Warn(format, args...) }
func PersonaError(format string, args ...interface{}) { Get(CategoryPersona).Error(format, args...) }

// Store logs

func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func StoreWarn(format string, args ...interface{})  { Get(CategoryStore).Warn(format, args...) }
func StoreError(format string, args ...interface{}) { Get(CategoryStore).Error(format, args...) }
