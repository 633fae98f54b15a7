package models

const (
	CitationsOpenTag  = "<citations>"
	CitationsCloseTag = "</citations>"
	CitationsRegex    = `(?s)<citations>(.*?)</citations>`
	ThinkTag          = `(?s)<think>.*?</think>`
	ContextSeparator  = "\n\n"

	ToolHRSearch   = "hr_search"
	ToolJisrSearch = "jisr_search"
)

// fixed user-facing replies
const (
	EmptyMessageAnswer   = "يرجى كتابة سؤالك."
	GreetingAnswer       = "مرحبًا! كيف أقدر أساعدك اليوم؟ 😊"
	NoSourcesAnswer      = "لا توجد مصادر كافية للإجابة حالياً."
	FallbackAnswerPrefix = "ملخص من المصادر (الوضع الاحتياطي):"
	UnknownDocTitle      = "غير معروف"
)

var (
	SmallTalkKeywords = []string{
		"hi", "hello", "hey", "hii", "good morning", "good evening", "good night",
		"مرحبا", "السلام عليكم", "هلا", "هاي", "صباح الخير", "مساء الخير",
		"كيف حالك", "شلونك", "كيفك", "اخبارك",
	}

	AgentSystemPrompt = `أنت hr_agent.

مهمتك اختيار الأداة المناسبة قبل توليد الإجابة:
- إذا كان السؤال عن سياسات وإجراءات الموارد البشرية الداخلية استخدم أداة hr_search.
- إذا كان السؤال عن استخدام منصة جسر (تسجيل الموظف، الإجازات عبر جسر، مسير الرواتب داخل جسر، رفع الطلبات، التنقل داخل النظام) استخدم أداة jisr_search.
- إذا جمع السؤال بين سياسة داخلية وطريقة تنفيذها على جسر فاستدعِ hr_search أولاً ثم jisr_search وادمج النتائج.

قواعد صارمة:
1) يجب استدعاء أداة واحدة على الأقل قبل الإجابة. لا تكتب إجابة دون نتائج أدوات.
2) اعتمد فقط على "context" القادم من الأدوات. لا تخمّن ولا تضف معلومات من خارج المصادر.
3) إذا لم تجد معلومة كافية في السياق فصرّح بذلك بوضوح واقترح على المستخدم تحديد سؤاله أو رفع ملف السياسة المناسب.
4) صُغ الإجابة بالعربية بشكل موجز وواضح وعملي.
5) اختم بقسم "المراجع" يذكر اسم المستند ورقم الجزء (chunk) لكل مصدر استندت إليه.
6) في السطر الأخير ضع بلوك JSON داخل الوسمين التاليين حرفيًا:
<citations>{"items":[...]}</citations>
- "items" مصفوفة الدمج بدون تكرار لكل العناصر القادمة من الأدوات بالشكل:
  {"doc_title": "string", "chunk": 0, "source": "string", "corpus": "hr"|"jisr"}
- لا تضف مفاتيح أخرى ولا تغيّر أسماء المفاتيح.

كل أداة تُرجع JSON بالشكل {"context": "...", "citations": [...]}. اعتمد على "context" حصراً، وادمج جميع "citations" من جميع الأدوات بدون تكرار في البلوك الأخير.
`

	// sent back when the model tries to answer before calling any tool
	ToolRequiredReminder = "لم تستدعِ أي أداة بعد. استدعِ hr_search أو jisr_search أولاً ثم أجب اعتماداً على نتائجها فقط."

	// sent when the iteration bound is reached
	ForceAnswerInstruction = "انتهى عدد محاولات البحث المسموح. أجب الآن اعتماداً فقط على نتائج الأدوات أعلاه، وإن لم تكفِ فصرّح بذلك، واختم ببلوك <citations>."

	HRSearchDescription   = "ابحث فقط في مصدر سياسات الموارد البشرية الداخلية (HR). يُرجع JSON بالشكل {\"context\": \"...\", \"citations\": [...]}."
	JisrSearchDescription = "ابحث فقط في مصدر أدلة استخدام منصة جسر (JISR). يُرجع JSON بنفس صيغة hr_search ولكن corpus = \"jisr\"."
)
