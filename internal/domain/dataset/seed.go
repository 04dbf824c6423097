package dataset

// Seed - стартовое содержимое коллекций при самом первом запуске.
func Seed() Dataset {
	return Dataset{
		Memories: []Memory{
			{
				ID:          "1",
				Title:       "第一次咖啡约会",
				Date:        "2023-02-14",
				Description: "我们在街角的咖啡馆相遇。那天虽然下着雨，你却点了一杯冰拿铁。",
				ImageURL:    "https://picsum.photos/800/600?random=1",
				Location:    "上海, 静安区",
				Tags:        []string{"第一次", "咖啡", "雨天"},
				Mood:        "cozy",
			},
			{
				ID:          "2",
				Title:       "攀登黄山",
				Date:        "2023-06-20",
				Description: "爬到半山腰差点放弃，但云海出现的那一刻，一切都值了。",
				ImageURL:    "https://picsum.photos/800/600?random=2",
				Location:    "安徽, 黄山",
				Tags:        []string{"冒险", "自然", "徒步"},
				Mood:        "adventure",
			},
			{
				ID:          "3",
				Title:       "一周年纪念晚餐",
				Date:        "2024-02-14",
				Description: "一年后，回到同一个城市，但这次是在外滩的餐厅，看着江景。",
				ImageURL:    "https://picsum.photos/800/600?random=3",
				Location:    "上海, 外滩",
				Tags:        []string{"庆祝", "美食", "爱"},
				Mood:        "romantic",
			},
			{
				ID:          "4",
				Title:       "海边公路自驾",
				Date:        "2023-08-15",
				Description: "车窗摇下来，我们大声唱着周杰伦的歌，海风吹乱了头发。",
				ImageURL:    "https://picsum.photos/800/600?random=4",
				Location:    "海南, 万宁",
				Tags:        []string{"旅行", "音乐", "海滩"},
				Mood:        "happy",
			},
			{
				ID:          "5",
				Title:       "搬家日",
				Date:        "2023-11-01",
				Description: "满地的纸箱，坐在地板上吃外卖披萨。这是我们小家的开始。",
				ImageURL:    "https://picsum.photos/800/600?random=5",
				Location:    "我们的新家",
				Tags:        []string{"家", "里程碑", "混乱"},
				Mood:        "cozy",
			},
		},
		Flowers: []Flower{},
		Todos: []Todo{
			{ID: "1", Text: "一起去看极光", Completed: false},
		},
		Snacks: []Snack{},
		Cities: []CityVisit{
			{ID: "1", City: "泰山", Date: "2023-05-01", Notes: "五岳独尊，看日出"},
			{ID: "2", City: "济南", Date: "2023-05-03", Notes: "大明湖畔夏雨荷"},
			{ID: "3", City: "无锡", Date: "2023-10-01", Notes: "太湖美，鼋头渚"},
			{ID: "4", City: "苏州", Date: "2023-10-03", Notes: "园林之美，平江路"},
		},
		Dates: []SpecialDate{
			{ID: "1", Title: "我的生日", Date: "2002-12-29", Type: DateTypeBirthday},
			{ID: "2", Title: "她的生日", Date: "2003-08-15", Type: DateTypeBirthday},
			{ID: "3", Title: "在一起纪念日", Date: "2023-02-14", Type: DateTypeAnniversary},
		},
		SocialPosts: []SocialPost{},
	}
}
